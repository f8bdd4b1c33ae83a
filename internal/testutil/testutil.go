// Package testutil provides shared helpers for package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/flashdeck/flashdeck/internal/config"
	"github.com/flashdeck/flashdeck/internal/database"
	"github.com/flashdeck/flashdeck/internal/logger"
	"github.com/stretchr/testify/require"
)

// DBConfig returns a SQLite configuration pointing into a test temp dir.
func DBConfig(t *testing.T) config.Database {
	t.Helper()
	return config.Database{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "flashcards.db"),
	}
}

// OpenDB opens a migrated SQLite database that is closed when the test ends.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := DBConfig(t)
	db, err := database.Open(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(cfg, nil, logger.Discard()))
	return db
}
