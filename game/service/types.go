package service

import (
	"time"

	"github.com/wricardo/memory-match/game/best"
	"github.com/wricardo/memory-match/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string           `json:"id"`
	ConfigName     string           `json:"config_name"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	Snapshot       *engine.Snapshot `json:"snapshot"`
}

// FlipResult contains the result of a flip request
type FlipResult struct {
	Accepted bool             `json:"accepted"`
	CardID   string           `json:"card_id"`
	Snapshot *engine.Snapshot `json:"snapshot"`
	Message  string           `json:"message,omitempty"`
}

// BestInfo is the best record for one board size
type BestInfo struct {
	BoardSize int          `json:"board_size"`
	Record    *best.Record `json:"record,omitempty"`
	Display   string       `json:"display"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename         string `json:"filename"`
	ConfigID         string `json:"config_id"` // The identifier to use for session creation
	Name             string `json:"name"`      // Display name
	Description      string `json:"description"`
	BoardSizes       []int  `json:"board_sizes"`
	DefaultBoardSize int    `json:"default_board_size"`
	Symbols          int    `json:"symbols"`
	ResolveDelayMs   int    `json:"resolve_delay_ms"`
}

// Notifiers fans events out to several notifiers
type Notifiers []Notifier

func (n Notifiers) SessionChanged(sessionID string, snap engine.Snapshot) {
	for _, notifier := range n {
		notifier.SessionChanged(sessionID, snap)
	}
}

func (n Notifiers) GameCompleted(sessionID string, completion engine.Completion) {
	for _, notifier := range n {
		notifier.GameCompleted(sessionID, completion)
	}
}
