package engine

import (
	"errors"
	"fmt"
)

// ErrStaleEvent marks a flip, resolution or tick that refers to a game that
// is no longer current. Callers absorb it silently.
var ErrStaleEvent = errors.New("stale game event")

// ConfigError reports an invalid board size, alphabet or game configuration.
// It is raised while a game is being constructed, never mid-game.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Reason)
	}
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err wraps a *ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
