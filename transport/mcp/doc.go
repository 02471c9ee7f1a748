// Package mcp provides a Model Context Protocol server for the memory match
// game.
//
// The server is a thin client: every tool call becomes a request against
// the REST API, so an agent plays the same sessions a browser shows.
//
// MCP Tools:
//   - create_session: Create a session with optional config and board size
//   - list_sessions: List all active sessions
//   - get_session: Get specific session details
//   - game_state: Render the board with ids for face-down cards
//   - flip: Turn a card face-up
//   - new_game: Deal again, optionally on another board size
//   - best_record: Best time and moves for a board size
//   - list_configs: List available game configurations
//   - game_instructions: Rules and strategy
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.ServeStdio(); err != nil {
//		log.Fatal(err)
//	}
package mcp
