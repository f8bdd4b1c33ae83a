package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flashdeck/flashdeck/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// Migrator is the subset of *migrate.Migrate used here.
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine builds a Migrator from a migration source and a database
// URL. Tests swap it to avoid touching a real database.
type MigrationEngine func(src source.Driver, databaseURL string) (Migrator, error)

// DefaultEngine is the golang-migrate backed engine.
func DefaultEngine(src source.Driver, databaseURL string) (Migrator, error) {
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

func migrationDir(dbType string) string {
	if dbType == "postgres" {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

// RunMigrations applies every pending migration for the configured dialect.
// An up-to-date schema is not an error.
func RunMigrations(cfg config.Database, engine MigrationEngine, log *slog.Logger) (err error) {
	if engine == nil {
		engine = DefaultEngine
	}
	if cfg.Type != "postgres" {
		if err := prepareSQLiteDir(cfg.Path, log); err != nil {
			return err
		}
	}

	src, err := iofs.New(migrationFiles, migrationDir(cfg.Type))
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	m, err := engine(src, cfg.MigrationURL())
	if err != nil {
		src.Close()
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration source error: %v", err, serr)
			} else {
				err = serr
			}
		}
		if dberr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration database error: %v", err, dberr)
			} else {
				err = dberr
			}
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("database schema is up to date", "type", cfg.Type)
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	log.Info("database migrations applied", "type", cfg.Type)
	return nil
}
