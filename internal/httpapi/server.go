package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"serverwatch/internal/config"
)

// NewServer wraps handler with request logging and applies the timeouts.
// Websocket connections are unaffected by WriteTimeout: the upgrader clears
// the deadlines on the hijacked conn.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           RequestLogger(slog.Default(), handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
