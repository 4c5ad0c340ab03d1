package core

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"motoriz/pkg/domain"
)

// Metrics holds the Prometheus collectors for store and HTTP activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	Exports         *prometheus.CounterVec
	Uploads         *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "motoriz"
	}
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by collection, operation and outcome.",
		}, []string{"entity", "operation", "outcome"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency including the backend call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "csv_total",
			Help:      "CSV exports by domain.",
		}, []string{"domain"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "files_total",
			Help:      "Uploaded files by folder and outcome.",
		}, []string{"folder", "outcome"}),
	}
	reg.MustRegister(m.StoreOperations, m.StoreDuration, m.HTTPRequests, m.HTTPDuration, m.Exports, m.Uploads)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStore records one store operation.
func (m *Metrics) ObserveStore(entity domain.EntityType, op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.StoreOperations.WithLabelValues(string(entity), op, outcome(err)).Inc()
	m.StoreDuration.WithLabelValues(string(entity), op).Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveExport counts a CSV export.
func (m *Metrics) ObserveExport(domainName string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(domainName).Inc()
}

// ObserveUpload counts an uploaded file.
func (m *Metrics) ObserveUpload(folder string, err error) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(folder, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}
