package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig holds configuration for the metrics collector.
type MetricsConfig struct {
	Namespace   string `yaml:"namespace" json:"namespace"`
	Subsystem   string `yaml:"subsystem" json:"subsystem"`
	MetricsPath string `yaml:"metricsPath" json:"metricsPath"`
}

// DefaultMetricsConfig returns the default configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "soap_plugin",
		MetricsPath: "/metrics",
	}
}

// Metrics wraps the Prometheus metrics of the plugin on its own registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	config   MetricsConfig
	registry *prometheus.Registry

	DescriptorFetches  *prometheus.CounterVec
	DescriptorDuration *prometheus.HistogramVec
	CatalogCache       *prometheus.CounterVec
	Invocations        *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	HTTPRequestsTotal  *prometheus.CounterVec
}

// NewMetrics creates a collector with a fresh registry.
func NewMetrics(cfg MetricsConfig) *Metrics {
	reg := prometheus.NewRegistry()
	ns, sub := cfg.Namespace, cfg.Subsystem

	m := &Metrics{
		config:   cfg,
		registry: reg,
		DescriptorFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "descriptor_fetches_total",
			Help:      "Total number of descriptor fetch-and-parse attempts",
		}, []string{"status"}),
		DescriptorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "descriptor_fetch_duration_seconds",
			Help:      "Duration of descriptor fetch-and-parse in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		CatalogCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "catalog_cache_total",
			Help:      "Catalog cache lookups by result",
		}, []string{"result"}),
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "invocations_total",
			Help:      "Total number of action invocations",
		}, []string{"piece", "status", "error_kind"}),
		InvocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "invocation_duration_seconds",
			Help:      "Duration of action invocations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"piece"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "route", "status_code"}),
	}

	reg.MustRegister(
		m.DescriptorFetches,
		m.DescriptorDuration,
		m.CatalogCache,
		m.Invocations,
		m.InvocationDuration,
		m.HTTPRequestsTotal,
	)
	return m
}

// MetricsPath returns the configured metrics endpoint path.
func (m *Metrics) MetricsPath() string { return m.config.MetricsPath }

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDescriptorFetch records one descriptor load.
func (m *Metrics) ObserveDescriptorFetch(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.DescriptorFetches.WithLabelValues(status).Inc()
	m.DescriptorDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveCacheLookup records a catalog cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CatalogCache.WithLabelValues(result).Inc()
}

// ObserveInvocation records one action invocation.
func (m *Metrics) ObserveInvocation(piece, status, errorKind string, d time.Duration) {
	if m == nil {
		return
	}
	m.Invocations.WithLabelValues(piece, status, errorKind).Inc()
	m.InvocationDuration.WithLabelValues(piece).Observe(d.Seconds())
}

// ObserveHTTPRequest records one API request.
func (m *Metrics) ObserveHTTPRequest(method, route, statusCode string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
}
