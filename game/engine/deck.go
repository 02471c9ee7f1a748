package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// DefaultSymbols is the built-in alphabet. It holds enough symbols for the
// largest supported board.
var DefaultSymbols = []string{
	"🐶", "🐱", "🦊", "🐼", "🦁", "🐸", "🐵", "🦄", "🐷",
	"🐨", "🐯", "🐰", "🐻", "🐮", "🐔", "🐙", "🦉", "🐢",
	"🦋", "🐳",
}

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// NewRNG returns a seeded source. A zero seed means "seed from the clock".
func NewRNG(seed int64) RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// PairCount returns the number of pairs dealt on a board of the given side
func PairCount(boardSize int) int {
	return boardSize * boardSize / CardsPerPair
}

// BuildDeck deals two cards for each of the first pairCount symbols and
// shuffles them. Those symbols must be distinct.
func BuildDeck(pairCount int, symbols []string, rng RNG) (Deck, error) {
	if pairCount < 1 {
		return nil, configErrorf("pair_count", "must be positive, got %d", pairCount)
	}
	if pairCount > len(symbols) {
		return nil, configErrorf("pair_count", "%d pairs requested but the alphabet has only %d symbols", pairCount, len(symbols))
	}

	seen := make(map[string]int, pairCount)
	for i, symbol := range symbols[:pairCount] {
		if j, ok := seen[symbol]; ok {
			return nil, configErrorf("symbols", "symbol %q repeats at positions %d and %d", symbol, j, i)
		}
		seen[symbol] = i
	}

	deck := make(Deck, 0, pairCount*CardsPerPair)
	for i, symbol := range symbols[:pairCount] {
		deck = append(deck,
			Card{ID: fmt.Sprintf("p%02d-a", i), Symbol: symbol},
			Card{ID: fmt.Sprintf("p%02d-b", i), Symbol: symbol},
		)
	}

	Shuffle(deck, rng)
	return deck, nil
}

// Shuffle permutes the deck in place with Fisher-Yates so that every order
// is equally likely.
func Shuffle(deck Deck, rng RNG) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// SymbolCounts tallies how many cards carry each symbol
func SymbolCounts(deck Deck) map[string]int {
	counts := make(map[string]int, len(deck)/CardsPerPair)
	for _, c := range deck {
		counts[c.Symbol]++
	}
	return counts
}
