package engine

import "time"

// Phase is the position of a game in the flip/resolve cycle
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseAwaitingSecondFlip Phase = "awaiting_second_flip"
	PhaseResolving          Phase = "resolving"
	PhaseComplete           Phase = "complete"

	// Board constants
	SmallBoardSize     = 4
	LargeBoardSize     = 6
	DefaultBoardSize   = SmallBoardSize
	CardsPerPair       = 2
	MaxRevealed        = 2
	DefaultBestDisplay = "—"

	// Timing defaults
	DefaultResolveDelay = 700 * time.Millisecond
	DefaultTickInterval = time.Second
)

// SupportedBoardSizes lists the grid side lengths a game can be played on
var SupportedBoardSizes = []int{SmallBoardSize, LargeBoardSize}

// Card is a single face of the board. Cards never change once dealt.
type Card struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// Deck is the ordered sequence of cards laid out on the board
type Deck []Card

// Find returns the card with the given id
func (d Deck) Find(id string) (Card, bool) {
	for _, c := range d {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// Contains reports whether id belongs to the deck
func (d Deck) Contains(id string) bool {
	_, ok := d.Find(id)
	return ok
}

// GameState is an immutable snapshot of one game. Transitions return a
// new value and never mutate the slices of the receiver.
type GameState struct {
	BoardSize      int      `json:"board_size"`
	Deck           Deck     `json:"deck"`
	Revealed       []string `json:"revealed"`
	Matched        []string `json:"matched"`
	Moves          int      `json:"moves"`
	ElapsedSeconds int      `json:"elapsed_seconds"`
	Running        bool     `json:"running"`
	Phase          Phase    `json:"phase"`
	Generation     uint64   `json:"generation"`
}

// Transition reports the side effects a state change asks the engine for
type Transition struct {
	Changed         bool
	StartClock      bool
	ScheduleResolve bool
	Matched         bool
	Completed       bool
}
