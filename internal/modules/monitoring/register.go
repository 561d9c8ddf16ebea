package monitoring

import (
	"database/sql"
	"net/http"

	"serverwatch/internal/config"
	"serverwatch/internal/modules/monitoring/controller"
	"serverwatch/internal/modules/monitoring/repository"
	"serverwatch/internal/modules/monitoring/service"
	"serverwatch/internal/modules/monitoring/views"
	"serverwatch/internal/observability"
)

// NewService builds the monitoring service on the repository for cfg.Backend.
func NewService(cfg config.Config, db *sql.DB, metrics *observability.Metrics) (*service.Service, error) {
	repo, err := repository.New(cfg, db)
	if err != nil {
		return nil, err
	}
	return service.NewService(repo,
		service.WithLocation(cfg.DisplayLocation),
		service.WithMetrics(metrics),
	), nil
}

func RegisterFeature(mux *http.ServeMux, svc *service.Service, metrics *observability.Metrics) error {
	renderer, err := views.NewRenderer(svc.Location())
	if err != nil {
		return err
	}
	monitoringController := controller.NewMonitoringController(svc, renderer, metrics)
	monitoringController.RegisterRoutes(mux)
	return nil
}
