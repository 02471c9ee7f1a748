package best

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store reads and conditionally replaces best records
type Store struct {
	mu  sync.Mutex
	kv  KV
	log zerolog.Logger
	now func() time.Time
}

// NewStore wraps a KV backend
func NewStore(kv KV, logger zerolog.Logger) *Store {
	return &Store{
		kv:  kv,
		log: logger.With().Str("component", "best").Logger(),
		now: time.Now,
	}
}

// GetBest returns the record for a board size. A missing, unreadable or
// malformed record is reported as absent.
func (s *Store) GetBest(ctx context.Context, boardSize int) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx, boardSize)
}

// Submit stores the result when it beats the current record. It reports
// whether the record was replaced.
func (s *Store) Submit(ctx context.Context, boardSize, seconds, moves int) (bool, error) {
	if seconds < 0 || moves < 0 {
		return false, fmt.Errorf("invalid result: seconds=%d moves=%d", seconds, moves)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := Record{Seconds: seconds, Moves: moves, Date: s.now().UTC()}
	if current, ok := s.get(ctx, boardSize); ok && !candidate.Beats(*current) {
		return false, nil
	}

	data, err := json.Marshal(candidate)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.kv.Put(ctx, Key(boardSize), data); err != nil {
		return false, fmt.Errorf("failed to store record: %w", err)
	}

	s.log.Info().
		Int("board_size", boardSize).
		Int("seconds", seconds).
		Int("moves", moves).
		Msg("new best record")
	return true, nil
}

// Close releases the backend
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) get(ctx context.Context, boardSize int) (*Record, bool) {
	key := Key(boardSize)
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to read best record")
		}
		return nil, false
	}

	r, err := decodeRecord(data)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("ignoring malformed best record")
		return nil, false
	}
	return r, true
}

// storedRecord tells missing fields apart from zero values
type storedRecord struct {
	Seconds *int       `json:"seconds"`
	Moves   *int       `json:"moves"`
	Date    *time.Time `json:"date"`
}

// decodeRecord parses a stored record. Every field must be present, the
// counts non-negative and the date set.
func decodeRecord(data []byte) (*Record, error) {
	var raw storedRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch {
	case raw.Seconds == nil || raw.Moves == nil || raw.Date == nil:
		return nil, errors.New("record is missing fields")
	case *raw.Seconds < 0 || *raw.Moves < 0:
		return nil, errors.New("record has negative values")
	case raw.Date.IsZero():
		return nil, errors.New("record has no date")
	}
	return &Record{Seconds: *raw.Seconds, Moves: *raw.Moves, Date: *raw.Date}, nil
}
