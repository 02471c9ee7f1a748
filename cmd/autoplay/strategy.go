package main

import "github.com/wricardo/memory-match/game/engine"

// MemoryStrategy never forgets a symbol it has seen. It completes a known
// pair whenever it can and otherwise uncovers cards it has not seen yet.
type MemoryStrategy struct {
	seen map[string]string // card id -> symbol
}

func NewMemoryStrategy() *MemoryStrategy {
	return &MemoryStrategy{seen: make(map[string]string)}
}

// Reset forgets everything; call it whenever a new game is dealt
func (s *MemoryStrategy) Reset() {
	s.seen = make(map[string]string)
}

// Observe records every face-up symbol in the snapshot
func (s *MemoryStrategy) Observe(snap *engine.Snapshot) {
	for _, card := range snap.Cards {
		if card.Symbol != "" {
			s.seen[card.ID] = card.Symbol
		}
	}
}

// Known reports how many cards the strategy has seen
func (s *MemoryStrategy) Known() int {
	return len(s.seen)
}

// NextFlip picks the card to flip next. It returns false while two cards
// are revealed or when nothing is left to flip.
func (s *MemoryStrategy) NextFlip(snap *engine.Snapshot) (string, bool) {
	s.Observe(snap)

	var revealed []engine.CardView
	var hidden []engine.CardView
	for _, card := range snap.Cards {
		switch {
		case card.Matched:
		case card.FaceUp:
			revealed = append(revealed, card)
		default:
			hidden = append(hidden, card)
		}
	}

	switch len(revealed) {
	case 0:
		if id, ok := s.knownPair(hidden); ok {
			return id, true
		}
	case 1:
		for _, card := range hidden {
			if s.seen[card.ID] == revealed[0].Symbol {
				return card.ID, true
			}
		}
	default:
		return "", false
	}

	for _, card := range hidden {
		if _, ok := s.seen[card.ID]; !ok {
			return card.ID, true
		}
	}
	if len(hidden) > 0 {
		return hidden[0].ID, true
	}
	return "", false
}

// knownPair finds a hidden card whose partner is also hidden and known
func (s *MemoryStrategy) knownPair(hidden []engine.CardView) (string, bool) {
	first := make(map[string]string)
	for _, card := range hidden {
		symbol, ok := s.seen[card.ID]
		if !ok {
			continue
		}
		if id, ok := first[symbol]; ok {
			return id, true
		}
		first[symbol] = card.ID
	}
	return "", false
}
