// Package engine provides the core game logic for the memory match game.
//
// The engine package implements:
//   - Deck generation with an unbiased Fisher-Yates shuffle
//   - Pair resolution for two revealed cards
//   - A copy-on-write state machine for flips, resolutions and clock ticks
//   - A stateful GameEngine that runs the clock and the delayed resolution
//   - Configuration loading and validation
//
// Core Types:
//
// GameState is an immutable value; Flip, Resolve and Tick return the next
// state plus a Transition describing the side effects the caller has to
// perform. GameEngine owns the current state and performs those effects
// through a Scheduler, so tests can drive time with a ManualScheduler.
//
// Every game carries a generation. Deferred callbacks capture the
// generation of the game that scheduled them and are dropped with
// ErrStaleEvent once a new game has been dealt.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.Options{Config: engine.DefaultGameConfig()})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	snap, changed := eng.Flip("p03-a")
//
// Game Rules:
//
// Cards are dealt face-down on a 4x4 or 6x6 board. The player flips two
// cards; after a short delay a pair stays face-up and a mismatch turns back
// down. Every second flip counts as one move. The clock starts on the first
// flip and stops when the last pair is found.
package engine
