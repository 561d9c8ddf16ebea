package controller

import (
	"net/http"

	"serverwatch/internal/modules/monitoring/service"
	"serverwatch/internal/modules/monitoring/views"
	"serverwatch/internal/observability"
)

type MonitoringController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type monitoringControllerImpl struct {
	service  *service.Service
	renderer *views.Renderer
	metrics  *observability.Metrics
}

func NewMonitoringController(svc *service.Service, renderer *views.Renderer, metrics *observability.Metrics) MonitoringController {
	return &monitoringControllerImpl{service: svc, renderer: renderer, metrics: metrics}
}

func (c *monitoringControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	c.handle(mux, "GET /", "/", c.handleDashboard)
	c.handle(mux, "GET /partials/status", "/partials/status", c.handleStatusPartial)
	c.handle(mux, "GET /partials/table", "/partials/table", c.handleTablePartial)
	c.handle(mux, "GET /partials/form", "/partials/form", c.handleFormPartial)
	c.handle(mux, "POST /readings", "/readings", c.handleSubmitForm)

	c.handle(mux, "GET /api/v1/readings", "/api/v1/readings", c.handleListReadings)
	c.handle(mux, "POST /api/v1/readings", "/api/v1/readings", c.handleCreateReading)
	c.handle(mux, "DELETE /api/v1/readings", "/api/v1/readings", c.handleDeleteAllReadings)
	c.handle(mux, "DELETE /api/v1/readings/{id}", "/api/v1/readings/{id}", c.handleDeleteReading)
	c.handle(mux, "GET /api/v1/status", "/api/v1/status", c.handleStatus)
	c.handle(mux, "GET /api/v1/trend", "/api/v1/trend", c.handleTrend)

	c.handle(mux, "GET /export.xlsx", "/export.xlsx", c.handleExport)
}

func (c *monitoringControllerImpl) handle(mux *http.ServeMux, pattern, route string, fn http.HandlerFunc) {
	mux.Handle(pattern, c.metrics.WrapHandler(route, fn))
}
