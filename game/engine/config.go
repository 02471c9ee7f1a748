package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"
)

// GameConfig describes the rules a game is dealt with, loaded from JSON
type GameConfig struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Symbols          []string `json:"symbols"`
	BoardSizes       []int    `json:"board_sizes"`
	DefaultBoardSize int      `json:"default_board_size"`
	ResolveDelayMs   int      `json:"resolve_delay_ms"`
	TickIntervalMs   int      `json:"tick_interval_ms,omitempty"`
}

// DefaultGameConfig returns the built-in animal deck playable on every
// supported board size
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:             "classic",
		Description:      "Animal pairs on a 4x4 or 6x6 board",
		Symbols:          slices.Clone(DefaultSymbols),
		BoardSizes:       slices.Clone(SupportedBoardSizes),
		DefaultBoardSize: DefaultBoardSize,
		ResolveDelayMs:   int(DefaultResolveDelay / time.Millisecond),
		TickIntervalMs:   int(DefaultTickInterval / time.Millisecond),
	}
}

// ResolveDelay is the time two revealed cards stay up before resolution
func (c *GameConfig) ResolveDelay() time.Duration {
	return time.Duration(c.ResolveDelayMs) * time.Millisecond
}

// TickInterval is the clock period; it defaults to one second
func (c *GameConfig) TickInterval() time.Duration {
	if c.TickIntervalMs <= 0 {
		return DefaultTickInterval
	}
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// SupportsBoardSize reports whether a game may be dealt on the given side
func (c *GameConfig) SupportsBoardSize(boardSize int) bool {
	return slices.Contains(c.BoardSizes, boardSize)
}

// ValidateBoardSize rejects sides that are not globally supported
func ValidateBoardSize(boardSize int) error {
	if !slices.Contains(SupportedBoardSizes, boardSize) {
		return configErrorf("board_size", "unsupported board size %d, expected one of %v", boardSize, SupportedBoardSizes)
	}
	return nil
}

// ValidateGameConfig checks that every board size the config offers can
// actually be dealt from its alphabet
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return configErrorf("", "config is required")
	}
	if config.Name == "" {
		return configErrorf("name", "is required")
	}
	if len(config.Symbols) == 0 {
		return configErrorf("symbols", "at least one symbol is required")
	}

	seen := make(map[string]bool, len(config.Symbols))
	for i, symbol := range config.Symbols {
		if symbol == "" {
			return configErrorf("symbols", "symbol %d is empty", i+1)
		}
		if seen[symbol] {
			return configErrorf("symbols", "symbol %q appears more than once", symbol)
		}
		seen[symbol] = true
	}

	if len(config.BoardSizes) == 0 {
		return configErrorf("board_sizes", "at least one board size is required")
	}
	for _, size := range config.BoardSizes {
		if err := ValidateBoardSize(size); err != nil {
			return err
		}
		if pairs := PairCount(size); pairs > len(config.Symbols) {
			return configErrorf("symbols", "board %dx%d needs %d symbols, got %d", size, size, pairs, len(config.Symbols))
		}
	}

	if !config.SupportsBoardSize(config.DefaultBoardSize) {
		return configErrorf("default_board_size", "%d is not one of board_sizes %v", config.DefaultBoardSize, config.BoardSizes)
	}
	if config.ResolveDelayMs < 0 {
		return configErrorf("resolve_delay_ms", "must not be negative, got %d", config.ResolveDelayMs)
	}
	if config.TickIntervalMs < 0 {
		return configErrorf("tick_interval_ms", "must not be negative, got %d", config.TickIntervalMs)
	}

	return nil
}

// LoadGameConfig loads and validates a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", filename, err)
	}

	return &config, nil
}
