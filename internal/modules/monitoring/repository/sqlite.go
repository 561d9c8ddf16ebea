package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"serverwatch/internal/modules/monitoring/types"
)

//go:embed sql/sqlite/insert-reading.sql
var sqliteInsertReadingSQL string

//go:embed sql/sqlite/list-readings.sql
var sqliteListReadingsSQL string

//go:embed sql/sqlite/delete-reading.sql
var sqliteDeleteReadingSQL string

//go:embed sql/sqlite/delete-all-readings.sql
var sqliteDeleteAllReadingsSQL string

// SQLite is the local backend: a single file owned by this process.
// Timestamps are stored as RFC3339Nano UTC text.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (r *SQLite) Append(ctx context.Context, rec types.Reading) (types.Reading, error) {
	if err := validateForStore(rec); err != nil {
		return types.Reading{}, err
	}
	var created string
	err := r.db.QueryRowContext(ctx, sqliteInsertReadingSQL,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Operator,
		rec.TemperatureC,
		rec.HumidityPct,
		rec.ACStatus,
		rec.UPSStatus,
		rec.PowerStatus,
		rec.ServerStatus,
		rec.Notes,
	).Scan(&rec.ID, &created)
	if err != nil {
		return types.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	if rec.CreatedAt, err = parseTimestamp(created); err != nil {
		return types.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	return rec, nil
}

func (r *SQLite) ListAll(ctx context.Context) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, sqliteListReadingsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	out := []types.Reading{}
	for rows.Next() {
		var rec types.Reading
		var ts, created string
		if err := rows.Scan(&rec.ID, &ts, &rec.Operator, &rec.TemperatureC, &rec.HumidityPct,
			&rec.ACStatus, &rec.UPSStatus, &rec.PowerStatus, &rec.ServerStatus,
			&rec.Notes, &created); err != nil {
			return nil, err
		}
		if rec.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLite) Remove(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, sqliteDeleteReadingSQL, id)
	if err != nil {
		return fmt.Errorf("delete reading %d: %w", id, err)
	}
	return checkAffected(res)
}

func (r *SQLite) RemoveAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteDeleteAllReadingsSQL); err != nil {
		return fmt.Errorf("delete all readings: %w", err)
	}
	return nil
}

func parseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: RFC3339Nano: %w; RFC3339: %w", ts, err, err2)
		}
	}
	return t, nil
}
