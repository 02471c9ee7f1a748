// Package best keeps the best finished game per board size.
//
// Records are stored as JSON under one key per board size in a KV backend.
// A record only ever improves: fewer seconds wins, ties are broken by fewer
// moves.
package best

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by a KV when the key has no value
var ErrNotFound = errors.New("key not found")

// Record is the best finished game for one board size
type Record struct {
	Seconds int       `json:"seconds"`
	Moves   int       `json:"moves"`
	Date    time.Time `json:"date"`
}

// Beats reports whether r is strictly better than other
func (r Record) Beats(other Record) bool {
	if r.Seconds != other.Seconds {
		return r.Seconds < other.Seconds
	}
	return r.Moves < other.Moves
}

// Key is the storage key of the record for a board size
func Key(boardSize int) string {
	return fmt.Sprintf("memory_best_%dx%d", boardSize, boardSize)
}

// KV is the byte-oriented storage the store persists records into
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
