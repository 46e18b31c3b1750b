package store

import (
	"fmt"
	"os"

	"fsnap/internal/config"
	"fsnap/internal/snap"
	"fsnap/internal/store/migrations"
)

// NewStoreFromConfig creates a Store implementation based on the database
// config type. Fresh stores are migrated to the current schema; existing
// stores are left as-is and verified later via CheckMigrations.
func NewStoreFromConfig(cfg config.DatabaseConfig) (snap.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		s, err := NewSQLiteStore(cfg.StorePath(), nil, nil)
		if err != nil {
			return nil, err
		}
		if err := migrations.MigrateUp(s.db); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrating store: %w", err)
		}
		return s, nil
	case "memory":
		db, err := OpenConnection(":memory:")
		if err != nil {
			return nil, err
		}
		if err := migrations.MigrateUp(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating in-memory store: %w", err)
		}
		return NewSQLiteStoreFromDB(db, ":memory:", nil, nil), nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
