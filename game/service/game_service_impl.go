package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	scores   engine.ScoreKeeper
	notifier Notifier
	log      zerolog.Logger
}

// NewGameService creates a new game service instance. scores and notifier
// may be nil.
func NewGameService(sessions SessionManager, configs ConfigManager, scores engine.ScoreKeeper, notifier Notifier, logger zerolog.Logger) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		scores:   scores,
		notifier: notifier,
		log:      logger.With().Str("component", "service").Logger(),
	}
}

// CreateSession creates a new game session. An empty config name selects
// the default config and a zero board size its default board.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, boardSize int) (*SessionInfo, error) {
	config, err := s.resolveConfig(configName)
	if err != nil {
		return nil, err
	}
	if boardSize != 0 {
		if err := engine.ValidateBoardSize(boardSize); err != nil {
			return nil, err
		}
		if !config.SupportsBoardSize(boardSize) {
			return nil, &engine.ConfigError{
				Field:  "board_size",
				Reason: fmt.Sprintf("config %q offers %v", config.Name, config.BoardSizes),
			}
		}
	}

	sess, err := s.sessions.Create("", s.configID(configName, config), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if boardSize != 0 && boardSize != config.DefaultBoardSize {
		if _, err := sess.Engine.NewGame(boardSize); err != nil {
			s.sessions.Delete(sess.ID)
			return nil, err
		}
	}
	s.attach(sess)

	s.log.Info().
		Str("session_id", sess.ID).
		Str("config", sess.ConfigID).
		Int("board_size", sess.Engine.State().BoardSize).
		Msg("session created")
	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}
	return result, nil
}

// DeleteSession removes a session and stops its engine
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.log.Info().Str("session_id", sessionID).Msg("session deleted")
	return nil
}

// NewGame deals a new game. A zero board size restarts on the current one.
func (s *gameServiceImpl) NewGame(ctx context.Context, sessionID string, boardSize int) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var snap engine.Snapshot
	if boardSize == 0 {
		snap, err = sess.Engine.Restart()
	} else {
		snap, err = sess.Engine.NewGame(boardSize)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Flip reveals a card. Ignored flips are not errors; they come back with
// Accepted false and the reason.
func (s *gameServiceImpl) Flip(ctx context.Context, sessionID, cardID string) (*FlipResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	snap, accepted := sess.Engine.Flip(cardID)
	result := &FlipResult{Accepted: accepted, CardID: cardID, Snapshot: &snap}
	if !accepted {
		result.Message = ignoredReason(snap, cardID)
	}
	return result, nil
}

// GetSnapshot returns the current view of a session's game
func (s *gameServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	snap := sess.Engine.Snapshot()
	return &snap, nil
}

// GetBest returns the best record for a board size
func (s *gameServiceImpl) GetBest(ctx context.Context, boardSize int) (*BestInfo, error) {
	if err := engine.ValidateBoardSize(boardSize); err != nil {
		return nil, err
	}
	info := &BestInfo{BoardSize: boardSize, Display: engine.DefaultBestDisplay}
	if s.scores == nil {
		return info, nil
	}
	if record, ok := s.scores.GetBest(ctx, boardSize); ok {
		info.Record = record
		info.Display = engine.BestDisplay(record)
	}
	return info, nil
}

// ListConfigs returns all available configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig returns a configuration by id
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	config, err := s.configs.LoadConfig(configName)
	if err != nil {
		return nil, s.configLoadError(configName, err)
	}
	return config, nil
}

func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) resolveConfig(configName string) (*engine.GameConfig, error) {
	if configName == "" {
		return s.configs.GetDefault(), nil
	}
	config, err := s.configs.LoadConfig(configName)
	if err != nil {
		return nil, s.configLoadError(configName, err)
	}
	return config, nil
}

// configLoadError lists the available configs when the requested one is
// missing
func (s *gameServiceImpl) configLoadError(configName string, err error) error {
	if !errors.Is(err, ErrConfigNotFound) {
		return fmt.Errorf("failed to load config %s: %w", configName, err)
	}
	available, listErr := s.configs.ListConfigs()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
	}
	ids := make([]string, 0, len(available))
	for _, cfg := range available {
		ids = append(ids, cfg.ConfigID)
	}
	return fmt.Errorf("%w: '%s'. Available configs: %s", ErrConfigNotFound, configName, strings.Join(ids, ", "))
}

// configID returns the identifier clients pass back to create sessions
func (s *gameServiceImpl) configID(requested string, config *engine.GameConfig) string {
	if requested != "" {
		return strings.TrimSuffix(requested, ".json")
	}
	if available, err := s.configs.ListConfigs(); err == nil {
		for _, cfg := range available {
			if cfg.Name == config.Name {
				return cfg.ConfigID
			}
		}
	}
	return config.Name
}

// attach forwards engine events to the notifier
func (s *gameServiceImpl) attach(sess *Session) {
	if s.notifier == nil {
		return
	}
	id := sess.ID
	sess.Engine.OnChange(func(snap engine.Snapshot) {
		s.notifier.SessionChanged(id, snap)
	})
	sess.Engine.OnComplete(func(c engine.Completion) {
		s.notifier.GameCompleted(id, c)
	})
}

func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	snap := sess.Engine.Snapshot()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		Snapshot:       &snap,
	}
}

func ignoredReason(snap engine.Snapshot, cardID string) string {
	switch snap.Phase {
	case engine.PhaseResolving:
		return "two cards are already face-up, wait for them to resolve"
	case engine.PhaseComplete:
		return "game is complete, start a new game"
	}
	for _, c := range snap.Cards {
		if c.ID != cardID {
			continue
		}
		if c.Matched {
			return fmt.Sprintf("card %s is already matched", cardID)
		}
		return fmt.Sprintf("card %s is already face-up", cardID)
	}
	return fmt.Sprintf("unknown card %s", cardID)
}
