package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"

	"serverwatch/internal/config"
	"serverwatch/internal/migrate"
)

const (
	sqliteDriverName   = "sqlite3"
	postgresDriverName = "postgres"
)

// Open connects to the store selected by cfg.Backend and verifies the
// connection. With cfg.LogSQL every statement is logged at debug level.
func Open(cfg config.Config) (*sql.DB, error) {
	driverName, drv, dsn, err := source(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogSQL {
		connector, err := NewLoggingConnector(drv, dsn, slog.Default().With("component", "sql"))
		if err != nil {
			return nil, err
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(driverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// Dialect returns the migration dialect for cfg.Backend.
func Dialect(cfg config.Config) migrate.Dialect {
	if cfg.Backend == config.BackendHosted {
		return migrate.Postgres
	}
	return migrate.SQLite
}

func source(cfg config.Config) (string, driver.Driver, string, error) {
	switch cfg.Backend {
	case config.BackendHosted:
		if cfg.DatabaseURL == "" {
			return "", nil, "", fmt.Errorf("DATABASE_URL is required for backend %q", cfg.Backend)
		}
		return postgresDriverName, &pq.Driver{}, cfg.DatabaseURL, nil
	case config.BackendLocal:
		dsn, err := buildSQLiteDSN(cfg.SQLitePath)
		if err != nil {
			return "", nil, "", err
		}
		return sqliteDriverName, &sqlite3.SQLiteDriver{}, dsn, nil
	default:
		return "", nil, "", fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func buildSQLiteDSN(path string) (string, error) {
	// Ensure directory exists for file-backed sqlite db
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	// - foreign_keys=on: enforce FK constraints
	// - busy_timeout: the dashboard and the MQTT subscriber write concurrently
	// - journal_mode=WAL: readers do not block the writer
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	// "file:/data/app.db?x=y" is extended, not re-wrapped
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
