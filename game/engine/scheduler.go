package engine

import (
	"sort"
	"sync"
	"time"
)

// Timer is a handle on a scheduled callback
type Timer interface {
	// Stop prevents any further firing. It reports whether the timer was
	// still active.
	Stop() bool
}

// Scheduler runs deferred and periodic callbacks for the engine
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Every(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the wall clock
type RealScheduler struct{}

// AfterFunc runs f once in its own goroutine after d
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Every runs f every d until the returned timer is stopped
func (RealScheduler) Every(d time.Duration, f func()) Timer {
	t := &tickerTimer{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.ticker.C:
				f()
			case <-t.done:
				return
			}
		}
	}()
	return t
}

type tickerTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTimer) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}

// ManualScheduler is a Scheduler driven by Advance instead of the wall
// clock. Callbacks run synchronously on the goroutine calling Advance, in
// due-time order.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	due     time.Duration
	period  time.Duration
	seq     int
	f       func()
	stopped bool
	oneShot bool
}

// NewManualScheduler returns a scheduler whose clock starts at zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return s.add(d, 0, f, true)
}

func (s *ManualScheduler) Every(d time.Duration, f func()) Timer {
	return s.add(d, d, f, false)
}

func (s *ManualScheduler) add(d, period time.Duration, f func(), oneShot bool) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, due: s.now + d, period: period, seq: s.seq, f: f, oneShot: oneShot}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing every callback that falls due
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.due
		if next.oneShot {
			next.stopped = true
		} else {
			next.due += next.period
		}
		f := next.f
		s.mu.Unlock()

		f()
	}
}

// Pending returns how many timers are still active
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Now returns the elapsed manual time
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) nextDue(limit time.Duration) *manualTimer {
	active := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped {
			active = append(active, t)
		}
	}
	s.timers = active

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].due == active[j].due {
			return active[i].seq < active[j].seq
		}
		return active[i].due < active[j].due
	})
	if len(active) == 0 || active[0].due > limit {
		return nil
	}
	return active[0]
}
