// Command memory-match starts the Memory Match game server.
//
// Commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket
//     live updates and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server against a running API, or spins up an
//     internal one if none answers
//  3. "best" prints the stored best records
//  4. "validate" checks every game config in the config directory
//
// Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/memory-match/api"
	"github.com/wricardo/memory-match/game/best"
	"github.com/wricardo/memory-match/game/config"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/service"
	"github.com/wricardo/memory-match/game/session"
	"github.com/wricardo/memory-match/logger"
	"github.com/wricardo/memory-match/transport/events"
	"github.com/wricardo/memory-match/transport/mcp"
	"github.com/wricardo/memory-match/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Memory Match Server"
)

const (
	cleanupInterval = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	envErr := loadDotEnv()

	app := newApp()
	app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if envErr != nil {
			log := newLogger(cmd)
			log.Warn().Err(envErr).Msg("failed to load .env file")
		}
		return ctx, nil
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDotEnv loads .env if it exists; a missing file is not an error
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "memory-match",
		Usage:   "Memory match game server with REST, WebSocket and MCP interfaces",
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "default-config", Usage: "Config id used when a session names none (default: classic, else the first valid file)", Sources: cli.EnvVars("DEFAULT_CONFIG")},
			&cli.StringFlag{Name: "store-url", Value: "memory://", Usage: "Best record store: memory://, file://DIR, sqlite://PATH or redis://HOST", Sources: cli.EnvVars("STORE_URL")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: "json", Usage: "Log format (json or console)", Sources: cli.EnvVars("LOG_FORMAT")},
			&cli.StringFlag{Name: "nats-url", Usage: "Publish game events to this NATS server (optional)", Sources: cli.EnvVars("NATS_URL")},
			&cli.StringFlag{Name: "static-dir", Usage: "Serve a browser UI from this directory (optional)", Sources: cli.EnvVars("STATIC_DIR")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Remove sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server with API, WebSocket and MCP endpoint (default)",
				Action: runServe,
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Usage: "REST API to proxy (default: local server, or an internal one)", Sources: cli.EnvVars("MEMORY_API_URL")},
				},
				Action: runMCP,
			},
			{
				Name:  "best",
				Usage: "Print the best records",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Usage: "Board size (default: all supported sizes)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runBest(ctx, cmd, os.Stdout)
				},
			},
			{
				Name:  "validate",
				Usage: "Validate the game configurations in the config directory",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runValidate(cmd.String("config-dir"), os.Stdout)
				},
			},
		},
		Action: runServe,
	}
}

func newLogger(cmd *cli.Command) zerolog.Logger {
	return logger.New(cmd.String("log-level"), cmd.String("log-format"))
}

// services holds everything a running server needs
type services struct {
	log      zerolog.Logger
	configs  *config.Manager
	store    *best.Store
	hub      *websocket.Hub
	events   *events.Publisher
	sessions *session.Manager
	game     service.GameService
}

// buildServices wires the config and session managers, the best record
// store, live update fan-out and the game service
func buildServices(ctx context.Context, cmd *cli.Command, log zerolog.Logger) (*services, error) {
	configManager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if id := cmd.String("default-config"); id != "" {
		if err := configManager.SetDefault(id); err != nil {
			return nil, fmt.Errorf("failed to set default config %s: %w", id, err)
		}
	}

	kv, err := best.Open(ctx, cmd.String("store-url"), log)
	if err != nil {
		return nil, fmt.Errorf("failed to open best record store: %w", err)
	}
	store := best.NewStore(kv, log)

	svcs := &services{
		log:     log,
		configs: configManager,
		store:   store,
		hub:     websocket.NewHub(log),
	}
	notifiers := service.Notifiers{svcs.hub}

	if natsURL := cmd.String("nats-url"); natsURL != "" {
		nc, err := events.Connect(natsURL, AppName)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		if _, err := events.ReplyPing(nc); err != nil {
			log.Warn().Err(err).Msg("failed to subscribe to ping subject")
		}
		svcs.events = events.NewPublisher(nc, log)
		notifiers = append(notifiers, svcs.events)
		log.Info().Str("url", natsURL).Msg("publishing game events to NATS")
	}

	svcs.sessions = session.NewManager(func(cfg *engine.GameConfig) (*engine.GameEngine, error) {
		return engine.NewEngine(engine.Options{Config: cfg, Scores: store, Logger: log})
	}, log)

	svcs.game = service.NewGameService(svcs.sessions, configManager, store, notifiers, log)
	svcs.hub.SetHandler(svcs.game)

	return svcs, nil
}

// Close stops every engine and releases the store and event bus
func (s *services) Close() {
	s.sessions.CloseAll()
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to drain NATS connection")
		}
	}
	if err := s.store.Close(); err != nil {
		s.log.Warn().Err(err).Msg("failed to close best record store")
	}
}

// newHTTPHandler combines the REST API with the /mcp JSON-RPC endpoint
func newHTTPHandler(apiServer *api.Server, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer.Handler())

	if mcpClient != nil {
		mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "Failed to read request", http.StatusBadRequest)
				return
			}
			defer r.Body.Close()

			response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

			responseData, err := json.Marshal(response)
			if err != nil {
				http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(responseData)
		})
	}

	return mainRouter
}

// runServe starts the HTTP server, the WebSocket hub, the session janitor
// and, when enabled, an ngrok tunnel. SIGHUP reloads the game configs. It
// returns after SIGINT/SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(cmd)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := buildServices(ctx, cmd, log)
	if err != nil {
		return err
	}
	defer svcs.Close()

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), int(cmd.Int("port")))
	baseURL := fmt.Sprintf("http://%s", addr)

	var opts []api.Option
	if dir := cmd.String("static-dir"); dir != "" {
		opts = append(opts, api.WithStaticDir(dir))
	}
	apiServer := api.NewServer(svcs.game, svcs.hub, log, opts...)
	handler := newHTTPHandler(apiServer, mcp.NewClient(baseURL))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svcs.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info().
			Str("addr", addr).
			Str("api", baseURL+"/api").
			Str("ws", fmt.Sprintf("ws://%s/ws?session_id=<id>", addr)).
			Str("mcp", baseURL+"/mcp").
			Str("version", Version).
			Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
		return nil
	})

	g.Go(func() error {
		sessionCleanupRoutine(gctx, svcs.sessions, cmd.Duration("session-ttl"), log)
		return nil
	})

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)
	g.Go(func() error {
		configReloadRoutine(gctx, svcs.configs, reload, log)
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			runNgrok(gctx, cmd, handler, log)
			return nil
		})
	}

	err = g.Wait()
	log.Info().Msg("server stopped")
	return err
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Info().Int("removed", removed).Int("remaining", manager.Count()).Msg("cleaned up expired sessions")
			}
		}
	}
}

// configReloadRoutine re-reads the config directory every time a value
// arrives on reload (SIGHUP in production)
func configReloadRoutine(ctx context.Context, configs *config.Manager, reload <-chan os.Signal, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
			if err := configs.RefreshCache(); err != nil {
				log.Error().Err(err).Msg("config reload failed")
				continue
			}
			log.Info().Str("default", configs.GetDefault().Name).Msg("configs reloaded")
		}
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done. A
// tunnel failure is logged and leaves the local server running.
func runNgrok(ctx context.Context, cmd *cli.Command, handler http.Handler, log zerolog.Logger) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Info().Str("domain", domain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.Info().
		Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("mcp", ngrokURL+"/mcp").
		Msg("ngrok tunnel established")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// runMCP runs an MCP stdio server. It proxies to --api-url, or to a server
// already listening on the configured port, and otherwise starts an
// internal HTTP API on a random loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP protocol; logs go to stderr
	log := newLogger(cmd)

	baseURL := cmd.String("api-url")
	if baseURL == "" {
		external := fmt.Sprintf("http://%s:%d", cmd.String("host"), int(cmd.Int("port")))
		if apiAvailable(external) {
			log.Info().Str("url", external).Msg("external API server found, using it for MCP")
			baseURL = external
		}
	}

	if baseURL == "" {
		svcs, err := buildServices(ctx, cmd, log)
		if err != nil {
			return err
		}
		defer svcs.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hubCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go svcs.hub.Run(hubCtx)

		httpServer := &http.Server{Handler: api.NewServer(svcs.game, svcs.hub, log).Handler()}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Info().Str("url", baseURL).Msg("started internal HTTP server for MCP stdio")
	}

	log.Info().Str("api", baseURL).Msg("MCP stdio server ready")
	if err := mcp.NewClient(baseURL).ServeStdio(); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runBest prints the best record of one or all supported board sizes
func runBest(ctx context.Context, cmd *cli.Command, out io.Writer) error {
	log := newLogger(cmd)

	kv, err := best.Open(ctx, cmd.String("store-url"), log)
	if err != nil {
		return fmt.Errorf("failed to open best record store: %w", err)
	}
	store := best.NewStore(kv, log)
	defer store.Close()

	sizes := engine.SupportedBoardSizes
	if size := int(cmd.Int("size")); size != 0 {
		if err := engine.ValidateBoardSize(size); err != nil {
			return err
		}
		sizes = []int{size}
	}

	printBest(ctx, store, sizes, out)
	return nil
}

func printBest(ctx context.Context, store *best.Store, sizes []int, out io.Writer) {
	for _, size := range sizes {
		record, ok := store.GetBest(ctx, size)
		if !ok {
			fmt.Fprintf(out, "%dx%d: %s\n", size, size, engine.DefaultBestDisplay)
			continue
		}
		fmt.Fprintf(out, "%dx%d: %s (%s)\n", size, size, engine.BestDisplay(record), record.Date.Format("2006-01-02"))
	}
}

// runValidate prints a report for every config in dir and fails when any
// of them is invalid
func runValidate(dir string, out io.Writer) error {
	results, err := config.ValidateDir(dir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return cli.Exit(fmt.Sprintf("no configuration files found in %s", dir), 1)
	}

	allValid := true
	for _, result := range results {
		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(out, "  "+info)
			}
			continue
		}

		allValid = false
		fmt.Fprintln(out, "❌ INVALID")
		for _, msg := range result.Errors {
			fmt.Fprintln(out, "  ❌ "+msg)
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		return cli.Exit("❌ Some configurations have errors", 1)
	}
	fmt.Fprintln(out, "✅ All configurations are valid!")
	return nil
}
