// Package storage opens the tree backend selected by configuration.
package storage

import (
	"fmt"
	"log/slog"

	"distq/internal/config"
	"distq/internal/tree"
	"distq/internal/tree/memtree"
	"distq/internal/tree/pebbletree"
	"distq/internal/tree/sqlitetree"
)

// Open returns the backend configured in cfg.Store. The data directory must
// already exist for the sqlite and pebble backends.
func Open(cfg *config.Config, logger *slog.Logger) (tree.Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("open store: nil config")
	}
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		store, err := sqlitetree.Open(sqlitetree.Options{
			Path:        cfg.SQLitePath(),
			BusyTimeout: cfg.BusyTimeout(),
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return store, nil
	case config.BackendPebble:
		mode, err := pebbletree.ParseFsyncMode(cfg.Store.Fsync)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		db, err := pebbletree.Open(pebbletree.Options{
			DataDir: cfg.PebbleDir(),
			Fsync:   mode,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return db, nil
	case config.BackendMemory:
		return memtree.New(), nil
	default:
		return nil, fmt.Errorf("open store: unsupported backend %q", cfg.Store.Backend)
	}
}

// Location describes where the configured backend keeps its data.
func Location(cfg *config.Config) string {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return cfg.SQLitePath()
	case config.BackendPebble:
		return cfg.PebbleDir()
	default:
		return "(memory)"
	}
}
