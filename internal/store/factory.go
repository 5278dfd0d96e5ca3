package store

import (
	"fmt"
	"os"
	"path/filepath"

	"netback/internal/config"
	"netback/internal/netback"
	"netback/internal/store/migrations"
)

// NewStoreFromConfig creates a Store implementation based on the store
// config type.
func NewStoreFromConfig(cfg config.StoreConfig) (netback.Store, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(cfg.DataDir, "netback.db")
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}

	s, err := NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(s.db); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return s, nil
}
