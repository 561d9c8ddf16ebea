package observability

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process collectors on a private registry. All methods are
// safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	submissions       *prometheus.CounterVec
	advisories        *prometheus.CounterVec
	repositoryErrors  *prometheus.CounterVec
	readingsStored    prometheus.Gauge
	realtimeClients   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serverwatch_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "serverwatch_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serverwatch_submissions_total",
			Help: "Reading submissions by source and outcome.",
		}, []string{"source", "outcome"}),
		advisories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serverwatch_advisories_total",
			Help: "Advisories raised at submission by field.",
		}, []string{"field"}),
		repositoryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serverwatch_repository_errors_total",
			Help: "Persistence failures by operation.",
		}, []string{"op"}),
		readingsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "serverwatch_readings_stored",
			Help: "Number of readings in the last listed history.",
		}),
		realtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "serverwatch_realtime_clients",
			Help: "Connected websocket clients.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.submissions,
		m.advisories,
		m.repositoryErrors,
		m.readingsStored,
		m.realtimeClients,
	)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades pass through the wrapper.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Submission records the outcome of one submit attempt: "accepted",
// "rejected" or "failed".
func (m *Metrics) Submission(source, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) Advisory(field string) {
	if m == nil {
		return
	}
	m.advisories.WithLabelValues(field).Inc()
}

func (m *Metrics) RepositoryError(op string) {
	if m == nil {
		return
	}
	m.repositoryErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) SetReadingsStored(n int) {
	if m == nil {
		return
	}
	m.readingsStored.Set(float64(n))
}

func (m *Metrics) SetRealtimeClients(n int) {
	if m == nil {
		return
	}
	m.realtimeClients.Set(float64(n))
}
