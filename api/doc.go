// Package api provides the HTTP REST API for the memory match game server.
//
// The api package implements:
//   - Session management endpoints
//   - Flip and new-game endpoints
//   - Best record lookup per board size
//   - Configuration listing
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session {"config_id": "...", "board_size": 4}
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session with its snapshot
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/flip - Flip a card {"card_id": "p03-a"}
//   - POST /api/sessions/{id}/new-game - Deal again {"board_size": 6}; no body restarts
//
// Records and Configuration:
//   - GET /api/best/{size} - Best record for a board size ("4" or "4x4")
//   - GET /api/configs - List configurations
//   - GET /api/configs/{name} - Get one configuration
//
// Live updates:
//   - GET /ws?session_id={id} - WebSocket stream of snapshots
//
// A flip that the game ignores (already face-up, unknown id, third card
// while two are resolving) still answers 200 with "accepted": false.
//
// Error Handling:
//
// Errors are returned as JSON: {"error": "message"}. Unknown sessions and
// configs map to 404, invalid board sizes and configs to 400.
//
// Every request carries an X-Request-ID, generated when the client did not
// send one, and a request-scoped zerolog logger in its context.
package api
