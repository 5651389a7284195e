package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/depreciation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the API.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Engine metrics
	SchedulesBuilt  *prometheus.CounterVec
	ReportsRendered *prometheus.CounterVec
	AssetsRejected  *prometheus.CounterVec
}

// NewMetrics registers the metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry initializes and registers Prometheus metrics with a custom registry
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immobilisations_http_requests_total",
				Help: "The total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "immobilisations_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		SchedulesBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immobilisations_schedules_built_total",
				Help: "The total number of single-asset schedule builds by outcome",
			},
			[]string{"outcome"},
		),
		ReportsRendered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immobilisations_reports_total",
				Help: "The total number of reports produced by kind and format",
			},
			[]string{"kind", "format"},
		),
		AssetsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "immobilisations_assets_rejected_total",
				Help: "Assets left out of a report, by kind",
			},
			[]string{"kind"},
		),
	}
}

// observeBuild counts one schedule build. Data errors and engine defects
// are told apart.
func (m *Metrics) observeBuild(err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, depreciation.ErrComputation):
		outcome = "defect"
	case asset.IsClientError(err):
		outcome = "rejected"
	default:
		outcome = "failure"
	}
	m.SchedulesBuilt.WithLabelValues(outcome).Inc()
}

// Middleware records request count and latency by route pattern, so
// /immobilisations/{code} is one series whatever the code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
