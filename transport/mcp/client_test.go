package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/memory-match/game/best"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/service"
)

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func sampleSnapshot() engine.Snapshot {
	return engine.Snapshot{
		ConfigName: "classic",
		BoardSize:  2,
		Cards: []engine.CardView{
			{ID: "p00-a", Symbol: "🍎", FaceUp: true, Matched: true},
			{ID: "p00-b", Symbol: "🍎", FaceUp: true, Matched: true},
			{ID: "p01-a", Symbol: "🍌", FaceUp: true},
			{ID: "p01-b"},
		},
		Moves:          3,
		Elapsed:        "00:07",
		PairsRemaining: 1,
		TotalPairs:     2,
		Phase:          engine.PhaseAwaitingSecondFlip,
		Running:        true,
		BestDisplay:    engine.DefaultBestDisplay,
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	t.Run("decodes response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"id": "ab12cd"})
		}))
		defer server.Close()

		var resp map[string]string
		if err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api/sessions/ab12cd", nil, &resp); err != nil {
			t.Fatalf("apiCall failed: %v", err)
		}
		if resp["id"] != "ab12cd" {
			t.Errorf("Unexpected response %v", resp)
		}
	})

	t.Run("surfaces API error message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "session not found: zzz"})
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api/sessions/zzz", nil, nil)
		if err == nil || err.Error() != "session not found: zzz" {
			t.Errorf("Expected API error message, got %v", err)
		}
	})

	t.Run("plain HTTP error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		if err := NewClient(server.URL).apiCall(context.Background(), "GET", "/", nil, nil); err == nil {
			t.Error("Expected error for HTTP 500 response")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		if err := NewClient("http://127.0.0.1:1").apiCall(context.Background(), "GET", "/", nil, nil); err == nil {
			t.Error("Expected error for unreachable server")
		}
	})
}

func TestClient_CreateSession(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		snap := sampleSnapshot()
		json.NewEncoder(w).Encode(service.SessionInfo{ID: "ab12cd", ConfigName: "letters", Snapshot: &snap})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateSession(context.Background(), callTool("create_session", map[string]interface{}{
		"config_id":  "letters",
		"board_size": float64(6),
	}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "ab12cd") {
		t.Errorf("Expected session ID in result, got: %s", text)
	}
	if gotBody["config_id"] != "letters" || gotBody["board_size"] != float64(6) {
		t.Errorf("Unexpected request body %v", gotBody)
	}
}

func TestClient_Flip(t *testing.T) {
	tests := []struct {
		name     string
		result   service.FlipResult
		contains []string
	}{
		{
			name: "first card",
			result: func() service.FlipResult {
				snap := sampleSnapshot()
				return service.FlipResult{Accepted: true, CardID: "p01-a", Snapshot: &snap}
			}(),
			contains: []string{"p01-a shows 🍌", "Flip a second card"},
		},
		{
			name: "ignored",
			result: func() service.FlipResult {
				snap := sampleSnapshot()
				return service.FlipResult{Accepted: false, CardID: "p00-a", Snapshot: &snap, Message: "card p00-a is already matched"}
			}(),
			contains: []string{"ignored", "already matched"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/sessions/ab12cd/flip" {
					t.Errorf("Unexpected path %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(tt.result)
			}))
			defer server.Close()

			result, _ := NewClient(server.URL).handleFlip(context.Background(), callTool("flip", map[string]interface{}{
				"session_id": "ab12cd",
				"card_id":    tt.result.CardID,
			}))
			text := resultText(t, result)
			for _, want := range tt.contains {
				if !strings.Contains(text, want) {
					t.Errorf("Expected %q in result, got: %s", want, text)
				}
			}
		})
	}

	t.Run("missing card id", func(t *testing.T) {
		result, _ := NewClient("http://unused").handleFlip(context.Background(), callTool("flip", map[string]interface{}{"session_id": "ab12cd"}))
		if !result.IsError {
			t.Error("Expected tool error")
		}
	})
}

func TestClient_BestRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/best/6" {
			json.NewEncoder(w).Encode(service.BestInfo{BoardSize: 6, Display: engine.DefaultBestDisplay})
			return
		}
		record := &best.Record{Seconds: 25, Moves: 9, Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)}
		json.NewEncoder(w).Encode(service.BestInfo{BoardSize: 4, Record: record, Display: engine.BestDisplay(record)})
	}))
	defer server.Close()
	client := NewClient(server.URL)

	result, _ := client.handleBestRecord(context.Background(), callTool("best_record", map[string]interface{}{"board_size": float64(4)}))
	if text := resultText(t, result); !strings.Contains(text, "00:25 • 9 moves") || !strings.Contains(text, "2025-03-02") {
		t.Errorf("Unexpected result: %s", text)
	}

	result, _ = client.handleBestRecord(context.Background(), callTool("best_record", map[string]interface{}{"board_size": float64(6)}))
	if text := resultText(t, result); !strings.Contains(text, "No record yet") {
		t.Errorf("Unexpected result: %s", text)
	}
}

func TestFormatSnapshot(t *testing.T) {
	snap := sampleSnapshot()
	text := formatSnapshot(&snap)

	expected := []string{
		"Board 2x2",
		"Moves: 3",
		"Time: 00:07",
		"Pairs left: 1/2",
		"Best: " + engine.DefaultBestDisplay,
		"(🍎) (🍎)\n",
		"[🍌] p01-b\n",
	}
	for _, want := range expected {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output:\n%s", want, text)
		}
	}
	if strings.Contains(text, "p01-a") {
		t.Error("Face-up card should show its symbol, not its id")
	}
}

func TestIntArg(t *testing.T) {
	args := map[string]interface{}{"f": float64(6), "i": 4, "s": "6", "x": true}
	if intArg(args, "f") != 6 || intArg(args, "i") != 4 || intArg(args, "s") != 6 {
		t.Error("Expected numeric forms to be read")
	}
	if intArg(args, "x") != 0 || intArg(args, "missing") != 0 {
		t.Error("Expected zero for unusable values")
	}
}
