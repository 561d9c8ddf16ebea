package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"serverwatch/internal/modules/monitoring/types"
)

//go:embed sql/postgres/insert-reading.sql
var pgInsertReadingSQL string

//go:embed sql/postgres/list-readings.sql
var pgListReadingsSQL string

//go:embed sql/postgres/delete-reading.sql
var pgDeleteReadingSQL string

//go:embed sql/postgres/delete-all-readings.sql
var pgDeleteAllReadingsSQL string

// ChangeChannel is the NOTIFY channel fed by the server_monitoring trigger.
const ChangeChannel = "server_monitoring_changes"

const (
	listenerMinReconnect = 2 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// Postgres is the hosted backend. It also implements ChangeNotifier via
// LISTEN/NOTIFY so writes from other instances reach this process.
type Postgres struct {
	db  *sql.DB
	dsn string
}

// NewPostgres wraps db. dsn is used to open the dedicated listener connection.
func NewPostgres(db *sql.DB, dsn string) *Postgres {
	return &Postgres{db: db, dsn: dsn}
}

func (r *Postgres) Append(ctx context.Context, rec types.Reading) (types.Reading, error) {
	if err := validateForStore(rec); err != nil {
		return types.Reading{}, err
	}
	err := r.db.QueryRowContext(ctx, pgInsertReadingSQL,
		rec.Timestamp.UTC(),
		rec.Operator,
		rec.TemperatureC,
		rec.HumidityPct,
		rec.ACStatus,
		rec.UPSStatus,
		rec.PowerStatus,
		rec.ServerStatus,
		rec.Notes,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return types.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	return rec, nil
}

func (r *Postgres) ListAll(ctx context.Context) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, pgListReadingsSQL)
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
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Operator, &rec.TemperatureC, &rec.HumidityPct,
			&rec.ACStatus, &rec.UPSStatus, &rec.PowerStatus, &rec.ServerStatus,
			&rec.Notes, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Postgres) Remove(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, pgDeleteReadingSQL, id)
	if err != nil {
		return fmt.Errorf("delete reading %d: %w", id, err)
	}
	return checkAffected(res)
}

func (r *Postgres) RemoveAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, pgDeleteAllReadingsSQL); err != nil {
		return fmt.Errorf("delete all readings: %w", err)
	}
	return nil
}

// OnChange listens on ChangeChannel. A nil notification is delivered by the
// listener after a reconnect; changes may have been missed, so it is treated
// like any other change.
func (r *Postgres) OnChange(ctx context.Context, fn func([]types.Reading)) error {
	listener := pq.NewListener(r.dsn, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				slog.Warn("change listener event", "event", ev, "error", err)
			}
		})
	if err := listener.Listen(ChangeChannel); err != nil {
		_ = listener.Close()
		return fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}
	slog.Info("listening for reading changes", "channel", ChangeChannel)

	go func() {
		defer func() {
			if err := listener.Close(); err != nil {
				slog.Error("close change listener", "error", err)
			}
		}()
		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-listener.Notify:
				if !ok {
					return
				}
				history, err := r.ListAll(ctx)
				if err != nil {
					if ctx.Err() == nil {
						slog.Error("list readings after change", "error", err)
					}
					continue
				}
				fn(history)
			case <-ticker.C:
				go func() {
					if err := listener.Ping(); err != nil {
						slog.Warn("change listener ping", "error", err)
					}
				}()
			}
		}
	}()
	return nil
}
