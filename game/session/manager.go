package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/service"
)

const (
	idAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"
	idLength   = 6
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// EngineFactory builds the engine of a new session
type EngineFactory func(config *engine.GameConfig) (*engine.GameEngine, error)

// Manager handles game session lifecycle. Sessions live in memory only.
type Manager struct {
	sessions  map[string]*service.Session
	newEngine EngineFactory
	log       zerolog.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

// NewManager creates a new session manager. A nil factory builds engines
// on the wall clock with no score keeping.
func NewManager(factory EngineFactory, logger zerolog.Logger) *Manager {
	if factory == nil {
		factory = func(config *engine.GameConfig) (*engine.GameEngine, error) {
			return engine.NewEngine(engine.Options{Config: config, Logger: logger})
		}
	}
	return &Manager{
		sessions:  make(map[string]*service.Session),
		newEngine: factory,
		log:       logger.With().Str("component", "sessions").Logger(),
		now:       time.Now,
	}
}

// Create creates a new session with the given ID and configuration. An empty
// id is replaced by a generated one.
func (m *Manager) Create(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	if id == "" {
		generated, err := m.generateSessionID()
		if err != nil {
			return nil, err
		}
		id = generated
	} else if strings.TrimSpace(id) != id || strings.ContainsAny(id, "/?#") {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[strings.ToLower(id)]; exists {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := m.newEngine(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := m.now()
	session := &service.Session{
		ID:        id,
		Engine:    eng,
		Config:    config,
		ConfigID:  configID,
		CreatedAt: now,
	}
	session.Touch(now)
	m.sessions[strings.ToLower(id)] = session
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, exists := m.sessions[strings.ToLower(id)]; exists {
		return session, nil
	}
	return nil, ErrSessionNotFound
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete removes a session and stops its engine
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	session, exists := m.sessions[strings.ToLower(id)]
	if exists {
		delete(m.sessions, strings.ToLower(id))
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	m.log.Debug().Str("session_id", session.ID).Stringer("engine", session.Engine).Msg("session deleted")
	session.Engine.Close()
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if !exists {
		return ErrSessionNotFound
	}
	session.Touch(m.now())
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the
// given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := m.now().Add(-maxAge)
	var expired []*service.Session
	for key, session := range m.sessions {
		if session.LastAccessed().Before(cutoff) {
			delete(m.sessions, key)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		m.log.Debug().Str("session_id", session.ID).Stringer("engine", session.Engine).Msg("session expired")
		session.Engine.Close()
	}
	return len(expired)
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll stops every engine; the manager is empty afterwards
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*service.Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Engine.Close()
	}
}

// generateSessionID returns a short id without look-alike characters
func (m *Manager) generateSessionID() (string, error) {
	for i := 0; i < 5; i++ {
		id, err := gonanoid.Generate(idAlphabet, idLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate session id: %w", err)
		}
		m.mu.RLock()
		_, taken := m.sessions[id]
		m.mu.RUnlock()
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique session id")
}
