package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/service"
)

// Client talks to the game server's REST API on behalf of one session
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID is the session the client currently plays in
func (c *Client) SessionID() string {
	return c.sessionID
}

// UseSession points the client at an existing session
func (c *Client) UseSession(id string) {
	c.sessionID = id
}

func (c *Client) CreateSession(ctx context.Context, configID string, boardSize int) (*service.SessionInfo, error) {
	req := map[string]any{}
	if configID != "" {
		req["config_id"] = configID
	}
	if boardSize > 0 {
		req["board_size"] = boardSize
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c.sessionID = session.ID
	return &session, nil
}

func (c *Client) State(ctx context.Context) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := c.do(ctx, http.MethodGet, c.sessionPath("state"), nil, &snap); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &snap, nil
}

func (c *Client) NewGame(ctx context.Context, boardSize int) (*engine.Snapshot, error) {
	req := map[string]any{}
	if boardSize > 0 {
		req["board_size"] = boardSize
	}

	var snap engine.Snapshot
	if err := c.do(ctx, http.MethodPost, c.sessionPath("new-game"), req, &snap); err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	return &snap, nil
}

func (c *Client) Flip(ctx context.Context, cardID string) (*service.FlipResult, error) {
	var result service.FlipResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("flip"), map[string]string{"card_id": cardID}, &result); err != nil {
		return nil, fmt.Errorf("flip %s: %w", cardID, err)
	}
	return &result, nil
}

func (c *Client) sessionPath(action string) string {
	return fmt.Sprintf("/api/sessions/%s/%s", c.sessionID, action)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
