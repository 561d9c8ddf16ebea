package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"serverwatch/internal/config"
	"serverwatch/internal/modules/monitoring/types"
)

// Repository persists readings. Append returns r as stored, with the ID and
// CreatedAt assigned by the store. ListAll returns history newest first by
// creation order.
type Repository interface {
	Append(ctx context.Context, r types.Reading) (types.Reading, error)
	ListAll(ctx context.Context) ([]types.Reading, error)
	Remove(ctx context.Context, id int64) error
	RemoveAll(ctx context.Context) error
}

// ChangeNotifier is implemented by backends that observe changes made by
// other writers. fn receives a fresh ListAll snapshot after every change until
// ctx is cancelled. OnChange returns once the subscription is established.
type ChangeNotifier interface {
	OnChange(ctx context.Context, fn func([]types.Reading)) error
}

// New returns the repository for cfg.Backend on top of an open db.
func New(cfg config.Config, db *sql.DB) (Repository, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return NewSQLite(db), nil
	case config.BackendHosted:
		return NewPostgres(db, cfg.DatabaseURL), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func validateForStore(r types.Reading) error {
	if strings.TrimSpace(r.Operator) == "" {
		return &types.ValidationError{Field: types.FieldOperator, Message: "operator is required"}
	}
	if r.Timestamp.IsZero() {
		return &types.ValidationError{Field: types.FieldTimestamp, Message: "timestamp is required"}
	}
	if math.IsNaN(r.TemperatureC) || math.IsInf(r.TemperatureC, 0) {
		return &types.ValidationError{Field: types.FieldTemperature, Message: "temperature must be a finite number"}
	}
	if math.IsNaN(r.HumidityPct) || math.IsInf(r.HumidityPct, 0) {
		return &types.ValidationError{Field: types.FieldHumidity, Message: "humidity must be a finite number"}
	}
	return nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}
