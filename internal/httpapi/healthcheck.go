package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"serverwatch/internal/logging"
	"serverwatch/internal/utils"
)

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db      *sql.DB
	backend string
}

func NewHealthchecker(db *sql.DB, backend string) healthchecker {
	return &healthcheckerImpl{db: db, backend: backend}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var ok int
	if err := h.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		logging.FromContext(r.Context()).Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "failed to check database connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": h.backend})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, backend string) {
	healthchecker := NewHealthchecker(db, backend)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
