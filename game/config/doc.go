// Package config provides configuration management for the memory match game.
//
// The config package handles:
//   - Loading game configurations from JSON files
//   - Default configuration selection
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Game configurations are stored as JSON files in the configs directory.
// The file name without extension is the config id clients pass when they
// create a session. Each configuration defines:
//   - The symbol alphabet cards are dealt from
//   - The board sizes it can be played on and the default one
//   - How long two revealed cards stay up before they are resolved
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("fruits")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// Validation:
//
// Every file is checked with engine.ValidateGameConfig; in particular the
// alphabet must hold enough distinct symbols for the largest board the file
// offers. Invalid files are skipped when listing and rejected when loaded.
package config
