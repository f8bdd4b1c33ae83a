package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/flashdeck/flashdeck/internal/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"
)

// Open opens and pings the configured database. Connection attempts are
// retried cfg.MaxRetries times, RetryDelay apart.
func Open(cfg config.Database, log *slog.Logger) (*sql.DB, error) {
	log = log.With("component", "database", "type", cfg.Type)

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Type {
	case "postgres":
		db, err = initPostgreSQL(cfg, log)
	case "sqlite", "":
		db, err = initSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; ; i++ {
		err = db.Ping()
		if err == nil {
			break
		}
		if i >= attempts {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
		}
		log.Warn("database ping failed, retrying", "attempt", i, "max_attempts", attempts, "error", err)
		time.Sleep(cfg.RetryDelay)
	}

	log.Info("database connection established")
	return db, nil
}

// initPostgreSQL initializes a PostgreSQL connection pool
func initPostgreSQL(cfg config.Database, log *slog.Logger) (*sql.DB, error) {
	log.Info("initializing PostgreSQL connection",
		"host", cfg.Host, "port", cfg.Port, "database", cfg.Name, "user", cfg.User)

	driver, dsn := cfg.DSN()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// initSQLite initializes a SQLite connection in WAL mode with foreign keys on
func initSQLite(cfg config.Database, log *slog.Logger) (*sql.DB, error) {
	log.Info("initializing SQLite connection", "path", cfg.Path)

	if err := prepareSQLiteDir(cfg.Path, log); err != nil {
		return nil, err
	}

	driver, dsn := cfg.DSN()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func prepareSQLiteDir(path string, log *slog.Logger) error {
	dataDir := filepath.Dir(path)
	if err := createDataDir(dataDir, log); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := checkWritePermissions(dataDir); err != nil {
		return fmt.Errorf("insufficient permissions for data directory %s: %w", dataDir, err)
	}
	return nil
}

// createDataDir ensures the data directory exists
func createDataDir(dir string, log *slog.Logger) error {
	if stat, err := os.Stat(dir); err == nil {
		if !stat.IsDir() {
			return fmt.Errorf("path %s exists but is not a directory", dir)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}

	log.Info("creating data directory", "dir", dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// checkWritePermissions verifies that we can write to the directory
func checkWritePermissions(dir string) error {
	testFile := filepath.Join(dir, ".write_test")

	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("cannot create test file: %w", err)
	}
	file.Close()

	return os.Remove(testFile)
}
