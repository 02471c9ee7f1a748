package engine

import (
	"testing"
	"time"
)

func TestManualScheduler(t *testing.T) {
	t.Run("fires in due order", func(t *testing.T) {
		s := NewManualScheduler()
		var order []string
		s.AfterFunc(300*time.Millisecond, func() { order = append(order, "late") })
		s.AfterFunc(100*time.Millisecond, func() { order = append(order, "early") })

		s.Advance(time.Second)
		if len(order) != 2 || order[0] != "early" || order[1] != "late" {
			t.Errorf("Unexpected order %v", order)
		}
		if s.Pending() != 0 {
			t.Errorf("Expected one-shot timers to be spent, %d pending", s.Pending())
		}
	})

	t.Run("repeats periodic timers", func(t *testing.T) {
		s := NewManualScheduler()
		n := 0
		timer := s.Every(time.Second, func() { n++ })

		s.Advance(3500 * time.Millisecond)
		if n != 3 {
			t.Errorf("Expected 3 ticks, got %d", n)
		}
		if !timer.Stop() {
			t.Error("Expected Stop to report an active timer")
		}
		s.Advance(time.Hour)
		if n != 3 {
			t.Errorf("Timer fired after Stop, %d ticks", n)
		}
		if timer.Stop() {
			t.Error("Second Stop should report false")
		}
	})

	t.Run("callbacks may schedule more work", func(t *testing.T) {
		s := NewManualScheduler()
		fired := false
		s.AfterFunc(time.Second, func() {
			s.AfterFunc(time.Second, func() { fired = true })
		})

		s.Advance(1500 * time.Millisecond)
		if fired {
			t.Fatal("Nested timer fired too early")
		}
		s.Advance(time.Second)
		if !fired {
			t.Error("Expected nested timer to fire")
		}
		if s.Now() != 2500*time.Millisecond {
			t.Errorf("Expected clock at 2.5s, got %v", s.Now())
		}
	})
}

func TestRealScheduler_Every(t *testing.T) {
	ticks := make(chan struct{}, 10)
	timer := RealScheduler{}.Every(5*time.Millisecond, func() { ticks <- struct{}{} })
	defer timer.Stop()

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("Expected a tick")
	}

	if !timer.Stop() {
		t.Error("Expected first Stop to report true")
	}
	if timer.Stop() {
		t.Error("Expected second Stop to report false")
	}
}
