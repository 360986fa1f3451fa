// Package monitoring exposes Prometheus metrics for the HTTP surface, the
// database and the catalog sync.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/ports/inbound"
)

const namespace = "pantry"

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	gatherer prometheus.Gatherer

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpActiveRequests  prometheus.Gauge

	// Database metrics
	dbQueryDuration *prometheus.HistogramVec
	dbQueryErrors   *prometheus.CounterVec

	// Catalog metrics
	syncRunsTotal     *prometheus.CounterVec
	syncItemsTotal    *prometheus.CounterVec
	streamEventsTotal *prometheus.CounterVec
}

// NewMetricsCollector registers every metric on reg. Tests pass a fresh
// prometheus.NewRegistry so collectors never collide.
func NewMetricsCollector(reg *prometheus.Registry, logger *zap.Logger) *MetricsCollector {
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:   logger.Named("metrics"),
		gatherer: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		httpActiveRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_active_requests",
				Help:      "Number of in-flight HTTP requests, open search streams included",
			},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation"},
		),
		dbQueryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_query_errors_total",
				Help:      "Total number of failed database statements",
			},
			[]string{"operation"},
		),

		syncRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_sync_runs_total",
				Help:      "Catalog sync runs by outcome",
			},
			[]string{"outcome"},
		),
		syncItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_sync_items_total",
				Help:      "Products processed by catalog sync, by result",
			},
			[]string{"result"},
		),
		streamEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingredient_stream_events_total",
				Help:      "Server-sent events written by the ingredient search stream",
			},
			[]string{"event"},
		),
	}
}

// HTTPMiddleware creates a Gin middleware for HTTP metrics collection.
// Unmatched routes share one label to keep cardinality bounded.
func (m *MetricsCollector) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpActiveRequests.Inc()
		defer m.httpActiveRequests.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}

// ObserveQuery matches postgres.QueryObserver.
func (m *MetricsCollector) ObserveQuery(operation string, duration time.Duration, err error) {
	m.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.dbQueryErrors.WithLabelValues(operation).Inc()
	}
}

// SyncCompleted records one sync run. A nil report counts as a failed run.
func (m *MetricsCollector) SyncCompleted(report *inbound.SyncReport, err error) {
	outcome := "completed"
	switch {
	case err != nil && report != nil:
		outcome = "interrupted"
	case err != nil:
		outcome = "failed"
	}
	m.syncRunsTotal.WithLabelValues(outcome).Inc()

	if report != nil {
		m.syncItemsTotal.WithLabelValues("updated").Add(float64(len(report.UpdatedNames)))
		m.syncItemsTotal.WithLabelValues("failed").Add(float64(len(report.Failures)))
	}
}

func (m *MetricsCollector) StreamEvent(event inbound.StreamEventType) {
	m.streamEventsTotal.WithLabelValues(string(event)).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
