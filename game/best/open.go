package best

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Open builds a KV from a store URL:
//
//	memory://             in-process map
//	file:///var/lib/mm    one JSON file per board size
//	sqlite:///data/mm.db  SQLite database
//	redis://host:6379/0   Redis
//
// An empty URL selects memory.
func Open(ctx context.Context, storeURL string, logger zerolog.Logger) (KV, error) {
	scheme, rest, found := strings.Cut(storeURL, "://")
	if storeURL == "" {
		scheme = "memory"
	} else if !found {
		return nil, fmt.Errorf("invalid store url %q: missing scheme", storeURL)
	}

	switch scheme {
	case "memory":
		return NewMemoryKV(), nil
	case "file":
		if rest == "" {
			return nil, fmt.Errorf("invalid store url %q: missing directory", storeURL)
		}
		return NewFileKV(rest)
	case "sqlite", "sqlite3":
		if rest == "" {
			return nil, fmt.Errorf("invalid store url %q: missing database path", storeURL)
		}
		return NewSQLiteKV(rest, logger)
	case "redis", "rediss":
		return NewRedisKV(ctx, storeURL)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", scheme)
	}
}
