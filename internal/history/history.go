// Package history stores analysis results keyed by article URL, so that
// re-submitting a URL returns the stored result instead of re-querying the
// model. Backends: in-process memory (default) and Redis.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/newslens/newslens/internal/config"
	"github.com/newslens/newslens/pkg/models"
)

// ErrNotFound is returned when no entry exists for a URL.
var ErrNotFound = fmt.Errorf("history: entry not found")

// Store is a URL-keyed history backend.
type Store interface {
	// Get returns the stored entry for url, or ErrNotFound.
	Get(ctx context.Context, url string) (*models.HistoryItem, error)

	// Put stores or replaces the entry for item.URL.
	Put(ctx context.Context, item *models.HistoryItem) error

	// Recent returns up to limit entries, newest first. limit <= 0 means all.
	Recent(ctx context.Context, limit int) ([]models.HistoryItem, error)

	// Delete removes the entry for url. Missing URLs are not an error.
	Delete(ctx context.Context, url string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// NewStoreFromConfig selects a backend from the history section of the config.
func NewStoreFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.History.Backend {
	case "", "memory":
		return NewMemoryStore(ttlFromConfig(cfg), cfg.History.MaxEntries), nil
	case "redis":
		return NewRedisStore(ctx, cfg.History.Redis.Addr, cfg.History.Redis.Password,
			cfg.History.Redis.DB, ttlFromConfig(cfg))
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

func ttlFromConfig(cfg *config.Config) time.Duration {
	if cfg.History.TTLSec <= 0 {
		return 0 // entries never expire
	}
	return time.Duration(cfg.History.TTLSec) * time.Second
}
