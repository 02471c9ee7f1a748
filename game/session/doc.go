// Package session provides session management for the memory match game.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Short, unambiguous session ID generation
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns a GameEngine built by the manager's EngineFactory, so
// the caller decides which scheduler, RNG and best-score store the engines
// share.
//
// Session Identifiers:
//
// Generated IDs are six characters drawn from an alphabet without
// look-alike characters (no 0/o, 1/l/i). Lookups are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager(factory, logger)
//
//	sess, err := manager.Create("", "classic", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
//
// Cleanup:
//
// Deleting or expiring a session closes its engine, which stops the clock
// and drops any pending resolution.
package session
