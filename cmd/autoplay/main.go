// Command autoplay plays memory match games against a running server over
// its REST API, using a player with perfect recall. It is handy for smoke
// testing a deployment and for seeding best records.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/logger"
)

// ErrFlipLimit is returned when a game is not finished within MaxFlips
var ErrFlipLimit = errors.New("flip limit reached before the game was complete")

// PlayOptions tunes a single game
type PlayOptions struct {
	MaxFlips     int
	PollInterval time.Duration
	Delay        time.Duration
}

// GameResult summarizes a finished game
type GameResult struct {
	SessionID string
	BoardSize int
	Flips     int
	Moves     int
	Elapsed   string
	Best      string
}

func main() {
	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "Play memory match games through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("MEMORY_API_URL")},
			&cli.StringFlag{Name: "config", Usage: "Config id to play (server default when empty)"},
			&cli.IntFlag{Name: "size", Usage: "Board size (config default when 0)"},
			&cli.StringFlag{Name: "continue", Usage: "Play in an existing session instead of creating one"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Number of games to play"},
			&cli.IntFlag{Name: "max-flips", Value: 500, Usage: "Give up a game after this many flips"},
			&cli.DurationFlag{Name: "poll", Value: 100 * time.Millisecond, Usage: "State poll interval while cards resolve"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between flips"},
			&cli.StringFlag{Name: "log-level", Value: "info", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: "console", Sources: cli.EnvVars("LOG_FORMAT")},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log := logger.New(cmd.String("log-level"), cmd.String("log-format"))
	client := NewClient(cmd.String("url"))
	boardSize := int(cmd.Int("size"))

	log.Info().Str("url", cmd.String("url")).Msg("connecting to game server")

	var snap *engine.Snapshot
	if id := cmd.String("continue"); id != "" {
		client.UseSession(id)
		resumed, err := client.NewGame(ctx, boardSize)
		if err != nil {
			return fmt.Errorf("resume session %s: %w", id, err)
		}
		snap = resumed
		log.Info().Str("session_id", id).Msg("resumed session")
	} else {
		session, err := client.CreateSession(ctx, cmd.String("config"), boardSize)
		if err != nil {
			return err
		}
		snap = session.Snapshot
		log.Info().Str("session_id", session.ID).Str("config", session.ConfigName).Msg("session created")
	}

	opts := PlayOptions{
		MaxFlips:     int(cmd.Int("max-flips")),
		PollInterval: cmd.Duration("poll"),
		Delay:        cmd.Duration("delay"),
	}

	games := int(cmd.Int("games"))
	for game := 1; game <= games; game++ {
		if game > 1 {
			next, err := client.NewGame(ctx, boardSize)
			if err != nil {
				return err
			}
			snap = next
		}

		result, err := Play(ctx, client, snap, opts, log)
		if err != nil {
			log.Error().Err(err).Int("game", game).Msg("game failed")
			return cli.Exit(err.Error(), 1)
		}
		log.Info().
			Int("game", game).
			Int("board_size", result.BoardSize).
			Int("moves", result.Moves).
			Int("flips", result.Flips).
			Str("time", result.Elapsed).
			Str("best", result.Best).
			Msg("🎉 game complete")
	}

	log.Info().Str("session_id", client.SessionID()).Msg("done")
	return nil
}

// Play finishes the game shown in snap and reports the final score
func Play(ctx context.Context, client *Client, snap *engine.Snapshot, opts PlayOptions, log zerolog.Logger) (*GameResult, error) {
	strategy := NewMemoryStrategy()
	flips := 0

	for !snap.Complete {
		if opts.MaxFlips > 0 && flips >= opts.MaxFlips {
			return nil, ErrFlipLimit
		}

		cardID, ok := strategy.NextFlip(snap)
		if !ok {
			// two cards are up; wait for the server to resolve them
			if err := sleep(ctx, opts.PollInterval); err != nil {
				return nil, err
			}
			next, err := client.State(ctx)
			if err != nil {
				return nil, err
			}
			snap = next
			continue
		}

		result, err := client.Flip(ctx, cardID)
		if err != nil {
			return nil, err
		}
		flips++
		if !result.Accepted {
			log.Debug().Str("card_id", cardID).Str("reason", result.Message).Msg("flip ignored")
		}
		if result.Snapshot != nil {
			snap = result.Snapshot
		}
		strategy.Observe(snap)

		log.Debug().
			Str("card_id", cardID).
			Int("moves", snap.Moves).
			Int("pairs_remaining", snap.PairsRemaining).
			Int("known", strategy.Known()).
			Msg("flip")

		if opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return nil, err
			}
		}
	}

	return &GameResult{
		SessionID: client.SessionID(),
		BoardSize: snap.BoardSize,
		Flips:     flips,
		Moves:     snap.Moves,
		Elapsed:   snap.Elapsed,
		Best:      snap.BestDisplay,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
