// Package websocket provides WebSocket transport for the memory match game.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Live snapshots after every state change, including clock ticks and
//     delayed resolutions
//   - Flip and new-game intents sent by clients
//
// Architecture:
//
// A central Hub owns all connections. Registration, removal and fan-out
// run on the Hub's Run goroutine; each client has a read pump and a write
// pump. Broadcasts are queued without blocking, because they are issued
// from engine callbacks.
//
// Message Protocol:
//
// Messages are JSON-encoded:
//   - Incoming: {"action": "flip", "card_id": "p03-a"}
//     or {"action": "new_game", "board_size": 6}
//   - Outgoing: {"session_id": "...", "event": "state_update", "snapshot": {...}}
//     plus game_complete, flip_ignored and error events
//
// Snapshots carry a per-session "seq". A client is never sent a snapshot
// older than one it already received.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//	hub.SetHandler(gameService)
//
//	// in an HTTP handler, after the session was looked up
//	hub.ServeWS(w, r, sessionID, snapshot)
package websocket
