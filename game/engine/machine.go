package engine

import "slices"

// NewGameState lays out a fresh, not yet started game for the given deck
func NewGameState(boardSize int, deck Deck, generation uint64) GameState {
	return GameState{
		BoardSize:  boardSize,
		Deck:       slices.Clone(deck),
		Revealed:   []string{},
		Matched:    []string{},
		Phase:      PhaseIdle,
		Generation: generation,
	}
}

// IsMatched reports whether the card is permanently face-up
func (s GameState) IsMatched(id string) bool {
	return slices.Contains(s.Matched, id)
}

// IsRevealed reports whether the card is face-up awaiting resolution
func (s GameState) IsRevealed(id string) bool {
	return slices.Contains(s.Revealed, id)
}

// IsComplete reports whether every card has been matched
func (s GameState) IsComplete() bool {
	return len(s.Deck) > 0 && len(s.Matched) == len(s.Deck)
}

// PairsRemaining is the number of pairs still face-down
func (s GameState) PairsRemaining() int {
	return (len(s.Deck) - len(s.Matched)) / CardsPerPair
}

// Flip reveals a card. Flips during resolution, after completion, and on
// cards that are unknown, matched or already revealed leave the state as is.
func (s GameState) Flip(id string) (GameState, Transition) {
	if s.Phase == PhaseResolving || s.Phase == PhaseComplete {
		return s, Transition{}
	}
	if !s.Deck.Contains(id) || s.IsMatched(id) || s.IsRevealed(id) {
		return s, Transition{}
	}

	next := s
	tr := Transition{Changed: true}
	if !next.Running {
		next.Running = true
		tr.StartClock = true
	}

	next.Revealed = append(slices.Clone(s.Revealed), id)
	switch len(next.Revealed) {
	case 1:
		next.Phase = PhaseAwaitingSecondFlip
	case MaxRevealed:
		next.Moves++
		next.Phase = PhaseResolving
		tr.ScheduleResolve = true
	}

	return next, tr
}

// Resolve settles the two revealed cards. It fires once per resolving phase;
// any other call is stale.
func (s GameState) Resolve(generation uint64) (GameState, Transition, error) {
	if generation != s.Generation || s.Phase != PhaseResolving || len(s.Revealed) != MaxRevealed {
		return s, Transition{}, ErrStaleEvent
	}

	next := s
	tr := Transition{Changed: true}
	next.Matched = slices.Clone(s.Matched)
	if Resolve(s.Deck, s.Revealed[0], s.Revealed[1]).IsMatch {
		next.Matched = append(next.Matched, s.Revealed[0], s.Revealed[1])
		tr.Matched = true
	}
	next.Revealed = []string{}

	if next.IsComplete() {
		next.Running = false
		next.Phase = PhaseComplete
		tr.Completed = true
	} else {
		next.Phase = PhaseIdle
	}

	return next, tr, nil
}

// Tick advances the clock by one second while the game is running
func (s GameState) Tick(generation uint64) (GameState, error) {
	if generation != s.Generation || !s.Running {
		return s, ErrStaleEvent
	}
	next := s
	next.ElapsedSeconds++
	return next, nil
}
