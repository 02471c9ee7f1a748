package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/memory-match/api"
	"github.com/wricardo/memory-match/game/best"
	"github.com/wricardo/memory-match/game/config"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/transport/mcp"
)

// runWith parses args against the app with action replaced, so tests can
// inspect the resulting flag values
func runWith(t *testing.T, args []string, action cli.ActionFunc) {
	t.Helper()
	app := newApp()
	app.Action = action
	if err := app.Run(context.Background(), append([]string{"memory-match"}, args...)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Memory Match Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	want := map[string]bool{"serve": false, "mcp": false, "best": false, "validate": false}
	for _, c := range app.Commands {
		if _, ok := want[c.Name]; ok {
			want[c.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Missing command %s", name)
		}
	}
	if app.Action == nil {
		t.Error("Root command should default to serving")
	}
}

func TestFlagDefaults(t *testing.T) {
	runWith(t, nil, func(ctx context.Context, cmd *cli.Command) error {
		if int(cmd.Int("port")) != 8080 {
			t.Errorf("Expected default port 8080, got %d", cmd.Int("port"))
		}
		if cmd.String("host") != "localhost" {
			t.Errorf("Expected default host localhost, got %s", cmd.String("host"))
		}
		if cmd.String("config-dir") != "configs" {
			t.Errorf("Expected default config dir configs, got %s", cmd.String("config-dir"))
		}
		if cmd.String("store-url") != "memory://" {
			t.Errorf("Expected memory store by default, got %s", cmd.String("store-url"))
		}
		if cmd.Duration("session-ttl") != 24*time.Hour {
			t.Errorf("Expected 24h session TTL, got %s", cmd.Duration("session-ttl"))
		}
		return nil
	})
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("STORE_URL", "file:///tmp/records")

	runWith(t, nil, func(ctx context.Context, cmd *cli.Command) error {
		if int(cmd.Int("port")) != 9191 {
			t.Errorf("Expected port from PORT, got %d", cmd.Int("port"))
		}
		if cmd.String("store-url") != "file:///tmp/records" {
			t.Errorf("Expected store from STORE_URL, got %s", cmd.String("store-url"))
		}
		return nil
	})
}

func TestBuildServices(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	runWith(t, []string{"--log-level", "error"}, func(ctx context.Context, cmd *cli.Command) error {
		svcs, err := buildServices(ctx, cmd, zerolog.Nop())
		if err != nil {
			t.Fatalf("Failed to build services: %v", err)
		}
		defer svcs.Close()

		info, err := svcs.game.CreateSession(ctx, "", 0)
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if info.Snapshot == nil || info.Snapshot.BoardSize != 4 {
			t.Errorf("Expected a 4x4 default game, got %+v", info.Snapshot)
		}
		if svcs.sessions.Count() != 1 {
			t.Errorf("Expected 1 session, got %d", svcs.sessions.Count())
		}
		return nil
	})
}

func TestBuildServices_InvalidConfigDir(t *testing.T) {
	runWith(t, []string{"--config-dir", "/non/existent/path"}, func(ctx context.Context, cmd *cli.Command) error {
		if _, err := buildServices(ctx, cmd, zerolog.Nop()); err == nil {
			t.Error("Expected error for non-existent config directory")
		}
		return nil
	})
}

func TestBuildServices_InvalidStore(t *testing.T) {
	runWith(t, []string{"--store-url", "ftp://nowhere"}, func(ctx context.Context, cmd *cli.Command) error {
		if _, err := buildServices(ctx, cmd, zerolog.Nop()); err == nil {
			t.Error("Expected error for unsupported store scheme")
		}
		return nil
	})
}

func TestBuildServices_DefaultConfig(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	runWith(t, []string{"--default-config", "fruits"}, func(ctx context.Context, cmd *cli.Command) error {
		svcs, err := buildServices(ctx, cmd, zerolog.Nop())
		if err != nil {
			t.Fatalf("Failed to build services: %v", err)
		}
		defer svcs.Close()

		info, err := svcs.game.CreateSession(ctx, "", 0)
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if info.Snapshot.ConfigName != "Fruits" {
			t.Errorf("Expected the fruits config by default, got %s", info.Snapshot.ConfigName)
		}
		return nil
	})

	runWith(t, []string{"--default-config", "missing"}, func(ctx context.Context, cmd *cli.Command) error {
		if _, err := buildServices(ctx, cmd, zerolog.Nop()); err == nil {
			t.Error("Expected error for an unknown default config")
		}
		return nil
	})
}

func TestConfigReloadRoutine(t *testing.T) {
	dir := t.TempDir()
	writeConfig := func(name string) {
		cfg := engine.DefaultGameConfig()
		cfg.Name = name
		data, _ := json.Marshal(cfg)
		if err := os.WriteFile(filepath.Join(dir, "classic.json"), data, 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
	}
	writeConfig("Before")

	configs, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reload := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		configReloadRoutine(ctx, configs, reload, zerolog.Nop())
		close(done)
	}()

	writeConfig("After")
	reload <- syscall.SIGHUP

	deadline := time.Now().Add(2 * time.Second)
	for configs.GetDefault().Name != "After" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if configs.GetDefault().Name != "After" {
		t.Errorf("Expected reloaded config, got %s", configs.GetDefault().Name)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Reload routine did not stop on cancel")
	}
}

func TestHTTPHandler_MCPEndpoint(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	runWith(t, nil, func(ctx context.Context, cmd *cli.Command) error {
		svcs, err := buildServices(ctx, cmd, zerolog.Nop())
		if err != nil {
			t.Fatalf("Failed to build services: %v", err)
		}
		defer svcs.Close()

		handler := newHTTPHandler(api.NewServer(svcs.game, svcs.hub, zerolog.Nop()), mcp.NewClient("http://unused"))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405 for GET /mcp, got %d", w.Code)
		}

		body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"jsonrpc"`) {
			t.Errorf("Expected a JSON-RPC response, got %d: %s", w.Code, w.Body.String())
		}

		w = httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected API to be mounted at root, got %d", w.Code)
		}
		return nil
	})
}

func TestPrintBest(t *testing.T) {
	ctx := context.Background()
	store := best.NewStore(best.NewMemoryKV(), zerolog.Nop())
	if _, err := store.Submit(ctx, 4, 25, 9); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var out bytes.Buffer
	printBest(ctx, store, []int{4, 6}, &out)

	text := out.String()
	if !strings.Contains(text, "4x4: 00:25 • 9 moves") {
		t.Errorf("Expected 4x4 record, got:\n%s", text)
	}
	if !strings.Contains(text, "6x6: —") {
		t.Errorf("Expected placeholder for 6x6, got:\n%s", text)
	}
}

func TestRunValidate(t *testing.T) {
	t.Run("bundled configs", func(t *testing.T) {
		if _, err := os.Stat("configs"); os.IsNotExist(err) {
			t.Skip("Skipping test - configs directory not found")
		}
		var out bytes.Buffer
		if err := runValidate("configs", &out); err != nil {
			t.Fatalf("Expected bundled configs to be valid: %v\n%s", err, out.String())
		}
		if !strings.Contains(out.String(), "All configurations are valid") {
			t.Errorf("Unexpected output:\n%s", out.String())
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"name": "bad"}`), 0644)

		var out bytes.Buffer
		if err := runValidate(dir, &out); err == nil {
			t.Error("Expected an error for an invalid config")
		}
		if !strings.Contains(out.String(), "INVALID") {
			t.Errorf("Unexpected output:\n%s", out.String())
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		if err := runValidate(t.TempDir(), &bytes.Buffer{}); err == nil {
			t.Error("Expected an error when no configs exist")
		}
	})
}
