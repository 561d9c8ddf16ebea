package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"serverwatch/internal/config"
	"serverwatch/internal/db"
	"serverwatch/internal/httpapi"
	"serverwatch/internal/migrate"
	"serverwatch/internal/modules/monitoring"
	"serverwatch/internal/mqtt"
	"serverwatch/internal/observability"
	"serverwatch/internal/realtime"
)

// OpenStore opens the configured store and brings its schema up to date.
func OpenStore(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	dbConn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	applied, err := migrate.Run(ctx, dbConn, db.Dialect(cfg))
	if err != nil {
		_ = db.Close(dbConn)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if applied > 0 {
		slog.Info("migrations applied", "count", applied, "backend", cfg.Backend)
	}
	return dbConn, nil
}

// Run serves the dashboard until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"backend", cfg.Backend,
		"sqlitePath", cfg.SQLitePath,
		"maxOpenConns", cfg.MaxOpenConns,
		"maxIdleConns", cfg.MaxIdleConns,
		"connMaxLifetime", cfg.ConnMaxLifetime,
		"displayTZ", cfg.DisplayLocation.String(),
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	dbConn, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()
	slog.Info("database connection successful", "backend", cfg.Backend)

	metrics := observability.NewMetrics()
	svc, err := monitoring.NewService(cfg, dbConn, metrics)
	if err != nil {
		return err
	}
	history, err := svc.History(ctx)
	if err != nil {
		return err
	}
	slog.Info("readings loaded", "count", len(history))

	hub := realtime.NewHub(metrics)
	defer hub.Close()
	if err := svc.Watch(ctx, hub.PublishHistory); err != nil {
		return fmt.Errorf("watch readings: %w", err)
	}

	mux := httpapi.NewMux(httpapi.MuxOptions{
		DB:        dbConn,
		Backend:   cfg.Backend,
		StaticDir: cfg.StaticDir,
		Metrics:   metrics,
		Realtime:  hub,
	})
	if err := monitoring.RegisterFeature(mux, svc, metrics); err != nil {
		return err
	}

	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled {
		// Set the handler before Connect so queued messages delivered right
		// after CONNACK are not dropped.
		subscriber = mqtt.NewSubscriber(cfg, slog.Default().With("component", "mqtt"))
		svc.RegisterMQTT(subscriber)

		// Short timeout so startup does not block when the broker is down.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("realtime clients disconnecting", "clients", hub.Clients())
	hub.Close()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
