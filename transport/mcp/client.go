package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Memory Match",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Memory Match - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Find every pair of matching symbols among face-down cards in as few moves and as little time as possible.

AVAILABLE TOOLS:
- create_session: Create a new game session (optional config and board size)
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Show the board
- flip: Turn one card face-up by id
- new_game: Deal a new game (optionally switch board size)
- best_record: Best time and moves for a board size
- list_configs: List available configurations
- game_instructions: Rules and strategy

NOTE: Face-down cards show their id on the board. Remember the symbols you have seen; they are hidden again after a mismatch.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func boardSizeProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"enum":        engine.SupportedBoardSizes,
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config and board size",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use (optional, see list_configs)",
				},
				"board_size": boardSizeProperty("Board side length (optional, defaults to the config's default)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, moves, clock and best record",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flip",
		Description: "Turn a face-down card face-up. The second flip of a pair counts as one move; a mismatched pair turns back over after a short delay.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"card_id": map[string]interface{}{
					"type":        "string",
					"description": "Card id as shown on the board, e.g. p03-a",
				},
			},
			Required: []string{"session_id", "card_id"},
		},
	}, c.handleFlip)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Deal a fresh shuffled game. Without board_size the current size is kept.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"board_size": boardSizeProperty("Board side length for the new game (optional)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleNewGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "best_record",
		Description: "Get the best record (lowest time, then fewest moves) for a board size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"board_size": boardSizeProperty("Board side length")},
			Required:   []string{"board_size"},
		},
	}, c.handleBestRecord)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the game and how to play it through these tools",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeStdio serves the tools over stdin/stdout until the client disconnects
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a numeric argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		fmt.Sscanf(v, "%d", &n)
		return n
	}
	return 0
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID, _ := args["config_id"].(string); configID != "" {
		body["config_id"] = configID
	}
	if size := intArg(args, "board_size"); size != 0 {
		body["board_size"] = size
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session %s\n\n%s", session.ID, formatSessionInfo(&session))
	if session.Snapshot != nil {
		result += "\n" + formatSnapshot(session.Snapshot)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Sessions) == 0 {
		return mcp.NewToolResultText("No active sessions. Use create_session to start one."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active sessions: %d\n", len(resp.Sessions))
	for _, session := range resp.Sessions {
		b.WriteString("- " + formatSessionInfo(session))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+sessionID, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleFlip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	cardID, _ := args["card_id"].(string)
	if cardID == "" {
		return mcp.NewToolResultError("card_id is required"), nil
	}

	var result service.FlipResult
	err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/flip", sessionID), map[string]string{"card_id": cardID}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFlipResult(&result)), nil
}

func (c *Client) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	body := map[string]int{}
	if size := intArg(args, "board_size"); size != 0 {
		body["board_size"] = size
	}

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/new-game", sessionID), body, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("New game dealt.\n\n" + formatSnapshot(&snap)), nil
}

func (c *Client) handleBestRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	size := intArg(arguments(request), "board_size")
	if size == 0 {
		return mcp.NewToolResultError("board_size is required"), nil
	}

	var info service.BestInfo
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/best/%d", size), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if info.Record == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No record yet for %dx%d.", size, size)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Best %dx%d: %s (set %s)",
		size, size, info.Display, info.Record.Date.Format("2006-01-02"))), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []*service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available configurations:\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "- %s: %s (%d symbols, boards %v, default %dx%d, mismatch delay %dms)\n",
			cfg.ConfigID, cfg.Name, cfg.Symbols, cfg.BoardSizes, cfg.DefaultBoardSize, cfg.DefaultBoardSize, cfg.ResolveDelayMs)
		if cfg.Description != "" {
			fmt.Fprintf(&b, "    %s\n", cfg.Description)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `MEMORY MATCH - RULES

SETUP:
- The board is a square grid of face-down cards: 4x4 (8 pairs) or 6x6 (18 pairs).
- Every symbol appears on exactly two cards. Positions are shuffled each game.

TURN:
1. flip one face-down card; its symbol is shown.
2. flip a second face-down card. This completes one move.
3. If the symbols match, both cards stay face-up for the rest of the game.
4. If they differ, both are shown briefly and then turned face-down again.
   While they are shown, further flips are ignored.

IGNORED FLIPS (not errors):
- Flipping a card that is already face-up or matched
- Flipping an unknown card id
- Flipping while a mismatched pair is still shown
- Flipping after the game is complete

CLOCK:
- The clock starts with your first flip and stops when the last pair is matched.

WINNING AND RECORDS:
- The game is complete when every pair is matched.
- A finished game becomes the best record for its board size when its time
  is lower, or its time is equal and it used fewer moves.

BOARD NOTATION (game_state):
- Face-down cards show their id, e.g. p03-a
- [🍎] is face-up and waiting to be resolved
- (🍎) is matched

STRATEGY:
- Keep a list of every symbol you have seen and its card id.
- When you flip a card whose partner you have already seen, flip the partner next.
- Otherwise, flip a card you have never seen rather than one you already know.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	line := fmt.Sprintf("Session %s (config: %s, created %s)",
		session.ID, session.ConfigName, session.CreatedAt.Format(time.RFC3339))
	if snap := session.Snapshot; snap != nil {
		line += fmt.Sprintf(" %dx%d, %d moves, %s, %s",
			snap.BoardSize, snap.BoardSize, snap.Moves, snap.Elapsed, snap.Phase)
	}
	return line + "\n"
}

func formatSnapshot(snap *engine.Snapshot) string {
	var b strings.Builder

	status := string(snap.Phase)
	if snap.Complete {
		status = "COMPLETE"
	}
	fmt.Fprintf(&b, "Board %dx%d | Moves: %d | Time: %s | Pairs left: %d/%d | %s\n",
		snap.BoardSize, snap.BoardSize, snap.Moves, snap.Elapsed, snap.PairsRemaining, snap.TotalPairs, status)
	fmt.Fprintf(&b, "Best: %s\n\n", snap.BestDisplay)

	for i, card := range snap.Cards {
		b.WriteString(formatCard(card))
		if snap.BoardSize > 0 && (i+1)%snap.BoardSize == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}

	if snap.Phase == engine.PhaseResolving {
		b.WriteString("\nThe shown pair does not match and will be hidden shortly.\n")
	}
	return b.String()
}

func formatCard(card engine.CardView) string {
	switch {
	case card.Matched:
		return fmt.Sprintf("(%s)", card.Symbol)
	case card.FaceUp:
		return fmt.Sprintf("[%s]", card.Symbol)
	default:
		return card.ID
	}
}

func formatFlipResult(result *service.FlipResult) string {
	var b strings.Builder

	if !result.Accepted {
		fmt.Fprintf(&b, "Flip of %s ignored: %s\n", result.CardID, result.Message)
	} else if result.Snapshot != nil {
		if symbol := symbolOf(result.Snapshot, result.CardID); symbol != "" {
			fmt.Fprintf(&b, "%s shows %s\n", result.CardID, symbol)
		}
		switch result.Snapshot.Phase {
		case engine.PhaseAwaitingSecondFlip:
			b.WriteString("Flip a second card.\n")
		case engine.PhaseResolving:
			b.WriteString("No match.\n")
		case engine.PhaseComplete:
			fmt.Fprintf(&b, "All pairs found in %s with %d moves!\n", result.Snapshot.Elapsed, result.Snapshot.Moves)
		default:
			b.WriteString("Match!\n")
		}
	}

	if result.Snapshot != nil {
		b.WriteString("\n" + formatSnapshot(result.Snapshot))
	}
	return b.String()
}

func symbolOf(snap *engine.Snapshot, cardID string) string {
	for _, card := range snap.Cards {
		if card.ID == cardID {
			return card.Symbol
		}
	}
	return ""
}
