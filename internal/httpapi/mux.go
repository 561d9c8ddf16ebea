package httpapi

import (
	"database/sql"
	"net/http"

	"serverwatch/internal/observability"
)

type MuxOptions struct {
	DB        *sql.DB
	Backend   string
	StaticDir string
	Metrics   *observability.Metrics
	// Realtime serves the websocket endpoint; nil leaves /ws unregistered.
	Realtime http.Handler
}

// NewMux registers the infrastructure routes. Feature modules add their own.
func NewMux(opts MuxOptions) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, opts.DB, opts.Backend)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}
	if opts.StaticDir != "" {
		static := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		mux.Handle("GET /static/", opts.Metrics.WrapHandler("/static/", static))
	}
	if opts.Realtime != nil {
		mux.Handle("GET /ws", opts.Metrics.WrapHandler("/ws", opts.Realtime))
	}
	return mux
}
