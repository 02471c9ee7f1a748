package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/memory-match/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Info is only filled for valid files.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

// ValidateFile loads a configuration JSON file and checks it with the same
// rules the engine applies when dealing from it.
func ValidateFile(path string) ValidationResult {
	result := ValidationResult{File: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var config engine.GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := engine.ValidateGameConfig(&config); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Valid = true
	if config.Description == "" {
		result.Info = append(result.Info, "No description")
	}
	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", config.Name),
		fmt.Sprintf("✓ Symbols: %d", len(config.Symbols)),
		fmt.Sprintf("✓ Boards: %v (default %dx%d)", config.BoardSizes, config.DefaultBoardSize, config.DefaultBoardSize),
		fmt.Sprintf("✓ Mismatch delay: %s", config.ResolveDelay()),
	)
	return result
}

// ValidateDir validates every *.json file in dir, sorted by name
func ValidateDir(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, ValidateFile(file))
	}
	return results, nil
}
