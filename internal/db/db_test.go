package db

import (
	"path/filepath"
	"strings"
	"testing"

	"serverwatch/internal/config"
	"serverwatch/internal/migrate"
)

func TestBuildSQLiteDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "plain path",
			path: filepath.Join(dir, "nested", "app.db"),
			want: "file:" + filepath.Join(dir, "nested", "app.db") + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
		{
			name: "file uri",
			path: "file:/data/app.db",
			want: "file:/data/app.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
		{
			name: "file uri with params",
			path: "file:/data/app.db?cache=shared",
			want: "file:/data/app.db?cache=shared&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildSQLiteDSN(tt.path)
			if err != nil {
				t.Fatalf("buildSQLiteDSN: %v", err)
			}
			if got != tt.want {
				t.Errorf("dsn = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_local(t *testing.T) {
	for _, logSQL := range []bool{false, true} {
		cfg := config.Config{
			Backend:      config.BackendLocal,
			SQLitePath:   filepath.Join(t.TempDir(), "data", "serverwatch.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			LogSQL:       logSQL,
		}
		conn, err := Open(cfg)
		if err != nil {
			t.Fatalf("Open(logSQL=%v): %v", logSQL, err)
		}
		var one int
		if err := conn.QueryRow(`SELECT 1`).Scan(&one); err != nil || one != 1 {
			t.Errorf("SELECT 1 = %d, %v", one, err)
		}
		if err := Close(conn); err != nil {
			t.Errorf("Close: %v", err)
		}
	}
}

func TestOpen_errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{name: "hosted without url", cfg: config.Config{Backend: config.BackendHosted}, want: "DATABASE_URL"},
		{name: "unknown backend", cfg: config.Config{Backend: "cloud"}, want: "unknown backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Open error = %v; want containing %q", err, tt.want)
			}
		})
	}
}

func TestClose_nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil) = %v", err)
	}
}

func TestDialect(t *testing.T) {
	if got := Dialect(config.Config{Backend: config.BackendHosted}); got != migrate.Postgres {
		t.Errorf("hosted dialect = %q", got)
	}
	if got := Dialect(config.Config{Backend: config.BackendLocal}); got != migrate.SQLite {
		t.Errorf("local dialect = %q", got)
	}
}
