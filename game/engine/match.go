package engine

// MatchResult is the verdict for a pair of revealed cards
type MatchResult struct {
	IsMatch bool `json:"is_match"`
}

// Resolve decides whether two card ids form a pair. Unknown ids and a card
// compared with itself never match.
func Resolve(deck Deck, idA, idB string) MatchResult {
	if idA == idB {
		return MatchResult{}
	}
	a, okA := deck.Find(idA)
	b, okB := deck.Find(idB)
	return MatchResult{IsMatch: okA && okB && a.Symbol == b.Symbol}
}
