package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match/game/best"
)

// submitTimeout bounds the Best-Score Store call made on completion
const submitTimeout = 3 * time.Second

// ScoreKeeper is the Best-Score Store as seen by the engine
type ScoreKeeper interface {
	GetBest(ctx context.Context, boardSize int) (*best.Record, bool)
	Submit(ctx context.Context, boardSize, seconds, moves int) (bool, error)
}

// Completion describes a finished game
type Completion struct {
	BoardSize int          `json:"board_size"`
	Seconds   int          `json:"seconds"`
	Moves     int          `json:"moves"`
	NewBest   bool         `json:"new_best"`
	Best      *best.Record `json:"best,omitempty"`
}

// Options configures a GameEngine. Only Config is required.
type Options struct {
	Config    *GameConfig
	Scheduler Scheduler
	RNG       RNG
	Scores    ScoreKeeper
	Logger    zerolog.Logger
}

// Engine provides the main interface for game operations
type Engine interface {
	NewGame(boardSize int) (Snapshot, error)
	Restart() (Snapshot, error)
	Flip(cardID string) (Snapshot, bool)
	Snapshot() Snapshot
	State() GameState
	Config() *GameConfig
	OnChange(fn func(Snapshot))
	OnComplete(fn func(Completion))
	Close()
}

// GameEngine owns one game at a time and runs its clock and delayed
// resolutions. All handlers run under a single lock, so flips, ticks and
// resolutions are processed one after another.
type GameEngine struct {
	mu         sync.Mutex
	config     *GameConfig
	state      GameState
	generation uint64
	seq        uint64 // bumped on every published change
	rng        RNG
	scheduler  Scheduler
	scores     ScoreKeeper
	best       *best.Record
	clock      Timer
	pending    Timer
	onChange   []func(Snapshot)
	onComplete []func(Completion)
	closed     bool
	log        zerolog.Logger
}

// NewEngine validates the config and deals a first game on its default
// board size
func NewEngine(opts Options) (*GameEngine, error) {
	if err := ValidateGameConfig(opts.Config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config:    opts.Config,
		rng:       opts.RNG,
		scheduler: opts.Scheduler,
		scores:    opts.Scores,
		log:       opts.Logger.With().Str("component", "engine").Str("config", opts.Config.Name).Logger(),
	}
	if e.rng == nil {
		e.rng = NewRNG(0)
	}
	if e.scheduler == nil {
		e.scheduler = RealScheduler{}
	}

	e.mu.Lock()
	err := e.deal(opts.Config.DefaultBoardSize)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e, nil
}

// NewGame discards the current game and deals a new one. Pending
// resolutions and clock ticks of the old game become stale.
func (e *GameEngine) NewGame(boardSize int) (Snapshot, error) {
	e.mu.Lock()
	if err := ValidateBoardSize(boardSize); err != nil {
		e.mu.Unlock()
		return Snapshot{}, err
	}
	if !e.config.SupportsBoardSize(boardSize) {
		e.mu.Unlock()
		return Snapshot{}, configErrorf("board_size", "config %q does not offer a %dx%d board", e.config.Name, boardSize, boardSize)
	}
	if err := e.deal(boardSize); err != nil {
		e.mu.Unlock()
		return Snapshot{}, err
	}
	snap := e.snapshotLocked()
	listeners := e.changeListeners()
	e.mu.Unlock()

	e.log.Debug().Int("board_size", boardSize).Uint64("generation", snap.Generation).Msg("new game dealt")
	notify(listeners, snap)
	return snap, nil
}

// Restart deals a new game on the current board size
func (e *GameEngine) Restart() (Snapshot, error) {
	e.mu.Lock()
	size := e.state.BoardSize
	e.mu.Unlock()
	return e.NewGame(size)
}

// Flip reveals a card. It reports whether the flip changed the game; ignored
// flips return the unchanged snapshot.
func (e *GameEngine) Flip(cardID string) (Snapshot, bool) {
	e.mu.Lock()
	if e.closed {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, false
	}

	next, tr := e.state.Flip(cardID)
	if !tr.Changed {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, false
	}
	e.state = next
	e.seq++
	gen := e.state.Generation

	if tr.StartClock {
		e.startClockLocked(gen)
	}
	if tr.ScheduleResolve {
		e.pending = e.scheduler.AfterFunc(e.config.ResolveDelay(), func() {
			e.resolve(gen)
		})
	}

	snap := e.snapshotLocked()
	listeners := e.changeListeners()
	e.mu.Unlock()

	notify(listeners, snap)
	return snap, true
}

// Snapshot returns the presentation view of the current game
func (e *GameEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// State returns the raw state of the current game
func (e *GameEngine) State() GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Config returns the rules the engine deals with
func (e *GameEngine) Config() *GameConfig {
	return e.config
}

// OnChange registers a listener called after every state change, outside
// the engine lock
func (e *GameEngine) OnChange(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = append(e.onChange, fn)
}

// OnComplete registers a listener called once per finished game
func (e *GameEngine) OnComplete(fn func(Completion)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = append(e.onComplete, fn)
}

// Close stops the clock and invalidates pending resolutions
func (e *GameEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.stopTimersLocked()
}

// deal must be called with the lock held
func (e *GameEngine) deal(boardSize int) error {
	deck, err := BuildDeck(PairCount(boardSize), e.config.Symbols, e.rng)
	if err != nil {
		return err
	}

	e.stopTimersLocked()
	e.generation++
	e.state = NewGameState(boardSize, deck, e.generation)
	e.seq++
	e.best = e.lookupBest(boardSize)
	return nil
}

// resolve is the delayed resolution callback
func (e *GameEngine) resolve(gen uint64) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	next, tr, err := e.state.Resolve(gen)
	if err != nil {
		e.mu.Unlock()
		if errors.Is(err, ErrStaleEvent) {
			e.log.Debug().Uint64("generation", gen).Msg("ignoring stale resolution")
		}
		return
	}
	e.state = next
	e.seq++
	e.pending = nil

	var completion *Completion
	if tr.Completed {
		e.stopClockLocked()
		completion = e.recordCompletionLocked()
	}

	snap := e.snapshotLocked()
	listeners := e.changeListeners()
	completeListeners := append([]func(Completion){}, e.onComplete...)
	e.mu.Unlock()

	notify(listeners, snap)
	if completion != nil {
		e.log.Info().
			Int("board_size", completion.BoardSize).
			Int("seconds", completion.Seconds).
			Int("moves", completion.Moves).
			Bool("new_best", completion.NewBest).
			Msg("game complete")
		for _, fn := range completeListeners {
			fn(*completion)
		}
	}
}

// tick is the periodic clock callback
func (e *GameEngine) tick(gen uint64) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	next, err := e.state.Tick(gen)
	if err != nil {
		e.mu.Unlock()
		return
	}
	e.state = next
	e.seq++
	snap := e.snapshotLocked()
	listeners := e.changeListeners()
	e.mu.Unlock()

	notify(listeners, snap)
}

func (e *GameEngine) recordCompletionLocked() *Completion {
	c := &Completion{
		BoardSize: e.state.BoardSize,
		Seconds:   e.state.ElapsedSeconds,
		Moves:     e.state.Moves,
	}
	if e.scores == nil {
		return c
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	updated, err := e.scores.Submit(ctx, c.BoardSize, c.Seconds, c.Moves)
	if err != nil {
		e.log.Warn().Err(err).Int("board_size", c.BoardSize).Msg("failed to submit best score")
	}
	c.NewBest = updated
	e.best = e.lookupBest(c.BoardSize)
	c.Best = e.best
	return c
}

func (e *GameEngine) lookupBest(boardSize int) *best.Record {
	if e.scores == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	record, ok := e.scores.GetBest(ctx, boardSize)
	if !ok {
		return nil
	}
	return record
}

func (e *GameEngine) startClockLocked(gen uint64) {
	e.stopClockLocked()
	e.clock = e.scheduler.Every(e.config.TickInterval(), func() {
		e.tick(gen)
	})
}

func (e *GameEngine) stopClockLocked() {
	if e.clock != nil {
		e.clock.Stop()
		e.clock = nil
	}
}

func (e *GameEngine) stopTimersLocked() {
	e.stopClockLocked()
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

func (e *GameEngine) snapshotLocked() Snapshot {
	snap := BuildSnapshot(e.state, e.best, e.config.Name)
	snap.Seq = e.seq
	return snap
}

func (e *GameEngine) changeListeners() []func(Snapshot) {
	return append([]func(Snapshot){}, e.onChange...)
}

// notify runs outside the lock, so listeners may see snapshots out of
// order. Seq tells them which one is newer.
func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

// String identifies the engine in logs
func (e *GameEngine) String() string {
	s := e.Snapshot()
	return fmt.Sprintf("engine(%s %dx%d gen=%d phase=%s)", s.ConfigName, s.BoardSize, s.BoardSize, s.Generation, s.Phase)
}
