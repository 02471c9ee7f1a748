// Package service provides the business logic layer for the memory match game.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration lookup for new sessions
//   - Flip and new-game requests against a session's engine
//   - Best record lookup per board size
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// Notifier receives state changes and completions for live clients and
// the event bus.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine; the service subscribes
// to the engine's change and completion callbacks and forwards them to the
// Notifier with the session id attached.
//
// Usage:
//
//	sessionMgr := session.NewManager(factory, logger)
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, store, hub, logger)
//
//	info, err := gameService.CreateSession(ctx, "classic", 4)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Flip(ctx, info.ID, "p00-a")
package service
