// Package monitoring holds the Prometheus collectors and the tracing setup.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "recipe_simplifier"

// MetricsCollector handles Prometheus metrics collection. It owns its
// registry so tests can build as many collectors as they like.
type MetricsCollector struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	// Business metrics
	parsesTotal    *prometheus.CounterVec
	parseDuration  prometheus.Histogram
	quotaDenied    *prometheus.CounterVec
	llmDuration    *prometheus.HistogramVec
	webhooksTotal  *prometheus.CounterVec
	dependencyUp   *prometheus.GaugeVec
	dependencyTime *prometheus.HistogramVec
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsCollector{
		registry: reg,
		logger:   logger.Named("metrics"),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Requests currently being served",
			},
		),

		parsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recipe_parses_total",
				Help:      "Recipe parse attempts by outcome",
			},
			[]string{"outcome"},
		),
		parseDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "recipe_parse_duration_seconds",
				Help:      "Scrape plus extraction time in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		quotaDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_denied_total",
				Help:      "Requests refused by the free plan quota",
			},
			[]string{"kind"},
		),
		llmDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_generation_duration_seconds",
				Help:      "Model call latency by outcome",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"outcome"},
		),
		webhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_webhooks_total",
				Help:      "Billing webhook deliveries by event type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		dependencyUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dependency_status",
				Help:      "1 healthy, 0.5 degraded, 0 unhealthy",
			},
			[]string{"dependency"},
		),
		dependencyTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dependency_check_duration_seconds",
				Help:      "Health check duration per dependency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"dependency"},
		),
	}
}

// RecordRequest records one served HTTP request.
func (m *MetricsCollector) RecordRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *MetricsCollector) InFlight(delta float64) {
	m.httpInFlight.Add(delta)
}

// RecordParse records a parse attempt. outcome is "success" or the failing
// stage.
func (m *MetricsCollector) RecordParse(outcome string, duration time.Duration) {
	m.parsesTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.parseDuration.Observe(duration.Seconds())
	}
}

func (m *MetricsCollector) RecordQuotaDenied(kind string) {
	m.quotaDenied.WithLabelValues(kind).Inc()
}

func (m *MetricsCollector) RecordGeneration(outcome string, duration time.Duration) {
	m.llmDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordWebhook(eventType, outcome string) {
	m.webhooksTotal.WithLabelValues(eventType, outcome).Inc()
}

// ObserveCheck records the result of a readiness probe for one dependency.
func (m *MetricsCollector) ObserveCheck(name, status string, duration time.Duration) {
	value := 0.0
	switch status {
	case "healthy":
		value = 1
	case "degraded":
		value = 0.5
	}
	m.dependencyUp.WithLabelValues(name).Set(value)
	m.dependencyTime.WithLabelValues(name).Observe(duration.Seconds())
}

// Registry exposes the underlying registry for tests.
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:          zap.NewStdLog(m.logger),
		EnableOpenMetrics: true,
	})
}
