package main

import (
	"context"

	"serverwatch/internal/app"
	"serverwatch/internal/db"
	"serverwatch/internal/modules/monitoring"
	"serverwatch/internal/modules/monitoring/service"
)

// openService opens the configured store for a one-shot command. The
// returned func closes it.
func openService(ctx context.Context) (*service.Service, func(), error) {
	dbConn, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := monitoring.NewService(cfg, dbConn, nil)
	if err != nil {
		_ = db.Close(dbConn)
		return nil, nil, err
	}
	return svc, func() { _ = db.Close(dbConn) }, nil
}
