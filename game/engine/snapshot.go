package engine

import (
	"fmt"

	"github.com/wricardo/memory-match/game/best"
)

// CardView is the client-facing representation of a card.
// Symbol is only included while the card is face-up.
type CardView struct {
	ID      string `json:"id"`
	Symbol  string `json:"symbol,omitempty"`
	FaceUp  bool   `json:"face_up"`
	Matched bool   `json:"matched"`
}

// Snapshot is the read-only view of a game handed to presentation layers
type Snapshot struct {
	ConfigName     string       `json:"config_name"`
	BoardSize      int          `json:"board_size"`
	Cards          []CardView   `json:"cards"`
	Moves          int          `json:"moves"`
	ElapsedSeconds int          `json:"elapsed_seconds"`
	Elapsed        string       `json:"elapsed"`
	PairsRemaining int          `json:"pairs_remaining"`
	TotalPairs     int          `json:"total_pairs"`
	Phase          Phase        `json:"phase"`
	Running        bool         `json:"running"`
	Complete       bool         `json:"complete"`
	Best           *best.Record `json:"best,omitempty"`
	BestDisplay    string       `json:"best_display"`
	Generation     uint64       `json:"generation"`
	Seq            uint64       `json:"seq"`
}

// BuildSnapshot derives the presentation view of a state
func BuildSnapshot(state GameState, record *best.Record, configName string) Snapshot {
	cards := make([]CardView, len(state.Deck))
	for i, card := range state.Deck {
		matched := state.IsMatched(card.ID)
		faceUp := matched || state.IsRevealed(card.ID)
		cv := CardView{ID: card.ID, FaceUp: faceUp, Matched: matched}
		if faceUp {
			cv.Symbol = card.Symbol
		}
		cards[i] = cv
	}

	return Snapshot{
		ConfigName:     configName,
		BoardSize:      state.BoardSize,
		Cards:          cards,
		Moves:          state.Moves,
		ElapsedSeconds: state.ElapsedSeconds,
		Elapsed:        FormatTime(state.ElapsedSeconds),
		PairsRemaining: state.PairsRemaining(),
		TotalPairs:     len(state.Deck) / CardsPerPair,
		Phase:          state.Phase,
		Running:        state.Running,
		Complete:       state.Phase == PhaseComplete,
		Best:           record,
		BestDisplay:    BestDisplay(record),
		Generation:     state.Generation,
	}
}

// FormatTime renders seconds as MM:SS
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// BestDisplay renders a best record, or the placeholder when there is none
func BestDisplay(record *best.Record) string {
	if record == nil {
		return DefaultBestDisplay
	}
	return fmt.Sprintf("%s • %d moves", FormatTime(record.Seconds), record.Moves)
}
