package database

import (
	"fmt"
	"log/slog"
)

// NewRunStore creates the run store for the configured database type and
// initializes its schema.
func NewRunStore(databaseType, connectionString string) (RunStore, error) {
	var store RunStore
	switch databaseType {
	case "sqlite":
		sqlite, err := NewSQLiteRunStore(connectionString)
		if err != nil {
			return nil, err
		}
		store = sqlite
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}

	// Schema creation is idempotent, important for in-memory SQLite.
	slog.Info("initializing database schema", "driver", databaseType)
	if err := store.CreateSchema(); err != nil {
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}

	return store, nil
}
