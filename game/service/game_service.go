package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wricardo/memory-match/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string, boardSize int) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	NewGame(ctx context.Context, sessionID string, boardSize int) (*engine.Snapshot, error)
	Flip(ctx context.Context, sessionID, cardID string) (*FlipResult, error)

	// Game State
	GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetBest(ctx context.Context, boardSize int) (*BestInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
}

// Notifier receives game events for fan-out to live clients and the
// event bus
type Notifier interface {
	SessionChanged(sessionID string, snap engine.Snapshot)
	GameCompleted(sessionID string, completion engine.Completion)
}

// Session represents an active game session. The last access time is
// written by every request and read concurrently, so it is only reachable
// through Touch and LastAccessed.
type Session struct {
	ID        string
	Engine    *engine.GameEngine
	Config    *engine.GameConfig
	ConfigID  string
	CreatedAt time.Time

	lastAccessed atomic.Int64 // unix nanoseconds
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.lastAccessed.Store(t.UnixNano())
}

// LastAccessed returns the time of the most recent access
func (s *Session) LastAccessed() time.Time {
	return time.Unix(0, s.lastAccessed.Load())
}
