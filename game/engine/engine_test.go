package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/memory-match/game/best"
)

// identityRNG leaves the deck in dealing order
type identityRNG struct{}

func (identityRNG) Intn(n int) int { return n - 1 }

type mockScores struct {
	mu        sync.Mutex
	records   map[int]*best.Record
	submitted []Completion
	SubmitErr error
}

func newMockScores() *mockScores {
	return &mockScores{records: make(map[int]*best.Record)}
}

func (m *mockScores) GetBest(ctx context.Context, boardSize int) (*best.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[boardSize]
	return r, ok
}

func (m *mockScores) Submit(ctx context.Context, boardSize, seconds, moves int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, Completion{BoardSize: boardSize, Seconds: seconds, Moves: moves})
	if m.SubmitErr != nil {
		return false, m.SubmitErr
	}
	candidate := best.Record{Seconds: seconds, Moves: moves, Date: time.Now()}
	if current, ok := m.records[boardSize]; ok && !candidate.Beats(*current) {
		return false, nil
	}
	m.records[boardSize] = &candidate
	return true, nil
}

func newTestEngine(t *testing.T, scores ScoreKeeper) (*GameEngine, *ManualScheduler) {
	t.Helper()
	sched := NewManualScheduler()
	eng, err := NewEngine(Options{
		Config:    DefaultGameConfig(),
		Scheduler: sched,
		RNG:       identityRNG{},
		Scores:    scores,
	})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng, sched
}

func playPair(t *testing.T, eng *GameEngine, sched *ManualScheduler, a, b string) {
	t.Helper()
	if _, ok := eng.Flip(a); !ok {
		t.Fatalf("Flip(%s) was ignored", a)
	}
	if _, ok := eng.Flip(b); !ok {
		t.Fatalf("Flip(%s) was ignored", b)
	}
	sched.Advance(DefaultResolveDelay)
}

func TestNewEngine(t *testing.T) {
	eng, sched := newTestEngine(t, nil)
	snap := eng.Snapshot()

	if snap.BoardSize != DefaultBoardSize {
		t.Errorf("Expected board size %d, got %d", DefaultBoardSize, snap.BoardSize)
	}
	if len(snap.Cards) != 16 {
		t.Errorf("Expected 16 cards, got %d", len(snap.Cards))
	}
	for _, c := range snap.Cards {
		if c.FaceUp || c.Symbol != "" {
			t.Errorf("Card %s should be face-down without symbol", c.ID)
		}
	}
	if snap.BestDisplay != DefaultBestDisplay {
		t.Errorf("Expected placeholder best, got %q", snap.BestDisplay)
	}
	if sched.Pending() != 0 {
		t.Errorf("Expected no timers before the first flip, got %d", sched.Pending())
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := DefaultGameConfig()
	config.Symbols = config.Symbols[:5]

	_, err := NewEngine(Options{Config: config})
	if !IsConfigError(err) {
		t.Errorf("Expected ConfigError, got %v", err)
	}
}

func TestEngine_ResolveAfterDelay(t *testing.T) {
	eng, sched := newTestEngine(t, nil)

	eng.Flip("p00-a")
	snap, _ := eng.Flip("p01-a")
	if snap.Phase != PhaseResolving {
		t.Fatalf("Expected resolving, got %s", snap.Phase)
	}

	t.Run("third flip is ignored while resolving", func(t *testing.T) {
		if _, ok := eng.Flip("p02-a"); ok {
			t.Error("Expected flip during resolution to be ignored")
		}
	})

	sched.Advance(DefaultResolveDelay - time.Millisecond)
	if eng.State().Phase != PhaseResolving {
		t.Fatal("Resolution fired before the delay elapsed")
	}

	sched.Advance(time.Millisecond)
	state := eng.State()
	if state.Phase != PhaseIdle || len(state.Revealed) != 0 {
		t.Errorf("Expected mismatch to turn back down, got %s %v", state.Phase, state.Revealed)
	}
	if state.Moves != 1 {
		t.Errorf("Expected 1 move, got %d", state.Moves)
	}
}

func TestEngine_Clock(t *testing.T) {
	eng, sched := newTestEngine(t, nil)

	sched.Advance(5 * time.Second)
	if eng.State().ElapsedSeconds != 0 {
		t.Error("Clock must not run before the first flip")
	}

	eng.Flip("p00-a")
	sched.Advance(3 * time.Second)
	if got := eng.Snapshot().Elapsed; got != "00:03" {
		t.Errorf("Expected 00:03, got %s", got)
	}
}

func TestEngine_CompleteGame(t *testing.T) {
	scores := newMockScores()
	eng, sched := newTestEngine(t, scores)

	var completions []Completion
	eng.OnComplete(func(c Completion) {
		completions = append(completions, c)
	})

	for i := 0; i < PairCount(SmallBoardSize); i++ {
		playPair(t, eng, sched, fmt.Sprintf("p%02d-a", i), fmt.Sprintf("p%02d-b", i))
		sched.Advance(time.Second)
	}

	snap := eng.Snapshot()
	if !snap.Complete || snap.Running {
		t.Fatalf("Expected completed game, got phase=%s running=%v", snap.Phase, snap.Running)
	}
	if snap.Moves != 8 {
		t.Errorf("Expected 8 moves, got %d", snap.Moves)
	}

	elapsed := snap.ElapsedSeconds
	sched.Advance(10 * time.Second)
	if eng.State().ElapsedSeconds != elapsed {
		t.Error("Clock kept running after completion")
	}

	if len(completions) != 1 {
		t.Fatalf("Expected one completion, got %d", len(completions))
	}
	if !completions[0].NewBest {
		t.Error("First completion should set a new best")
	}
	if snap.Best == nil || snap.Best.Moves != 8 {
		t.Errorf("Expected best with 8 moves, got %+v", snap.Best)
	}
	if len(scores.submitted) != 1 {
		t.Errorf("Expected one submission, got %d", len(scores.submitted))
	}
}

func TestEngine_SubmitFailureStillCompletes(t *testing.T) {
	scores := newMockScores()
	scores.SubmitErr = fmt.Errorf("storage offline")
	eng, sched := newTestEngine(t, scores)

	for i := 0; i < PairCount(SmallBoardSize); i++ {
		playPair(t, eng, sched, fmt.Sprintf("p%02d-a", i), fmt.Sprintf("p%02d-b", i))
	}

	snap := eng.Snapshot()
	if !snap.Complete {
		t.Error("Expected game to complete even when the store fails")
	}
	if snap.Best != nil {
		t.Errorf("Expected no best record, got %+v", snap.Best)
	}
}

func TestEngine_NewGameDropsPendingResolution(t *testing.T) {
	eng, sched := newTestEngine(t, nil)

	eng.Flip("p00-a")
	eng.Flip("p00-b")
	oldGen := eng.State().Generation

	snap, err := eng.NewGame(LargeBoardSize)
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	if snap.Generation == oldGen {
		t.Error("Expected a new generation")
	}

	sched.Advance(time.Minute)
	state := eng.State()
	if len(state.Matched) != 0 || state.Moves != 0 || state.ElapsedSeconds != 0 {
		t.Errorf("Old game leaked into new one: matched=%v moves=%d elapsed=%d",
			state.Matched, state.Moves, state.ElapsedSeconds)
	}
	if len(state.Deck) != 36 {
		t.Errorf("Expected 36 cards, got %d", len(state.Deck))
	}
}

func TestEngine_StaleResolveIsIgnored(t *testing.T) {
	eng, _ := newTestEngine(t, nil)

	eng.Flip("p00-a")
	eng.Flip("p00-b")
	gen := eng.State().Generation
	if _, err := eng.NewGame(SmallBoardSize); err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}

	// Simulates a callback that was already in flight when the game changed.
	eng.resolve(gen)
	if len(eng.State().Matched) != 0 {
		t.Error("Stale resolution altered the new game")
	}
}

func TestEngine_NewGameValidation(t *testing.T) {
	eng, _ := newTestEngine(t, nil)

	tests := []int{0, 3, 5, 8}
	for _, size := range tests {
		t.Run(fmt.Sprintf("size %d", size), func(t *testing.T) {
			if _, err := eng.NewGame(size); !IsConfigError(err) {
				t.Errorf("Expected ConfigError, got %v", err)
			}
		})
	}

	t.Run("size not offered by config", func(t *testing.T) {
		config := DefaultGameConfig()
		config.BoardSizes = []int{SmallBoardSize}
		small, err := NewEngine(Options{Config: config, Scheduler: NewManualScheduler()})
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		defer small.Close()
		if _, err := small.NewGame(LargeBoardSize); !IsConfigError(err) {
			t.Errorf("Expected ConfigError, got %v", err)
		}
	})
}

func TestEngine_Restart(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	if _, err := eng.NewGame(LargeBoardSize); err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	eng.Flip("p00-a")

	snap, err := eng.Restart()
	if err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if snap.BoardSize != LargeBoardSize {
		t.Errorf("Restart changed board size to %d", snap.BoardSize)
	}
	if snap.Running || snap.Moves != 0 {
		t.Error("Expected a fresh game after restart")
	}
}

func TestEngine_OnChange(t *testing.T) {
	eng, sched := newTestEngine(t, nil)

	var phases []Phase
	eng.OnChange(func(s Snapshot) {
		phases = append(phases, s.Phase)
	})

	eng.Flip("p00-a")
	eng.Flip("missing")
	eng.Flip("p01-a")
	sched.Advance(DefaultResolveDelay)

	want := []Phase{PhaseAwaitingSecondFlip, PhaseResolving, PhaseIdle}
	if len(phases) != len(want) {
		t.Fatalf("Expected %v, got %v", want, phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("Change %d: expected %s, got %s", i, want[i], phases[i])
		}
	}
}

func TestEngine_SeqOrdersChanges(t *testing.T) {
	eng, sched := newTestEngine(t, nil)

	var seqs []uint64
	eng.OnChange(func(s Snapshot) {
		seqs = append(seqs, s.Seq)
	})

	start := eng.Snapshot().Seq
	if start == 0 {
		t.Error("Expected the first deal to carry a sequence number")
	}

	eng.Flip("p00-a")
	eng.Flip("missing")
	eng.Flip("p01-a")
	sched.Advance(DefaultResolveDelay)
	sched.Advance(time.Second)
	if _, err := eng.NewGame(4); err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}

	// flip, flip, resolve, tick, deal; the ignored flip publishes nothing
	if len(seqs) != 5 {
		t.Fatalf("Expected 5 changes, got %v", seqs)
	}
	prev := start
	for i, seq := range seqs {
		if seq <= prev {
			t.Errorf("Change %d: seq %d does not follow %d", i, seq, prev)
		}
		prev = seq
	}
	if got := eng.Snapshot().Seq; got != prev {
		t.Errorf("Expected Snapshot to report the latest seq %d, got %d", prev, got)
	}
}

func TestEngine_ListenerMayCallBack(t *testing.T) {
	eng, _ := newTestEngine(t, nil)

	done := make(chan Snapshot, 1)
	eng.OnChange(func(s Snapshot) {
		// Listeners run outside the lock and may query the engine.
		done <- eng.Snapshot()
	})
	eng.Flip("p00-a")

	select {
	case s := <-done:
		if s.Phase != PhaseAwaitingSecondFlip {
			t.Errorf("Unexpected phase %s", s.Phase)
		}
	case <-time.After(time.Second):
		t.Fatal("Listener deadlocked")
	}
}

func TestEngine_Close(t *testing.T) {
	eng, sched := newTestEngine(t, nil)
	eng.Flip("p00-a")
	eng.Flip("p00-b")

	eng.Close()
	if sched.Pending() != 0 {
		t.Errorf("Expected timers to be stopped, %d pending", sched.Pending())
	}
	if _, ok := eng.Flip("p01-a"); ok {
		t.Error("Expected flips after Close to be ignored")
	}
}

func TestEngine_RealScheduler(t *testing.T) {
	config := DefaultGameConfig()
	config.ResolveDelayMs = 10

	eng, err := NewEngine(Options{Config: config, RNG: identityRNG{}})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	eng.Flip("p00-a")
	eng.Flip("p00-b")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(eng.State().Matched) == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Resolution never fired")
}

func TestEngine_ConcurrentFlips(t *testing.T) {
	eng, sched := newTestEngine(t, nil)

	var wg sync.WaitGroup
	for _, id := range []string{"p00-a", "p01-a", "p02-a", "p03-a", "p04-a"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			eng.Flip(id)
		}(id)
	}
	wg.Wait()

	state := eng.State()
	if len(state.Revealed) != MaxRevealed {
		t.Errorf("Expected exactly 2 revealed cards, got %v", state.Revealed)
	}
	if state.Moves != 1 {
		t.Errorf("Expected 1 move, got %d", state.Moves)
	}
	sched.Advance(DefaultResolveDelay)
	if eng.State().Phase != PhaseIdle {
		t.Errorf("Expected idle after resolution, got %s", eng.State().Phase)
	}
}
