// Package metrics exposes Prometheus metrics for export activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's Prometheus collectors on a private registry so
// tests can create as many instances as they need.
type Metrics struct {
	registry *prometheus.Registry

	exportsTotal   *prometheus.CounterVec
	batchesTotal   *prometheus.CounterVec
	exportDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshport",
			Name:      "exports_total",
			Help:      "Export collection invocations by format and outcome.",
		}, []string{"format", "status"}),
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshport",
			Name:      "export_batches_total",
			Help:      "Export batches by scope and outcome.",
		}, []string{"scope", "status"}),
		exportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "meshport",
			Name:      "export_duration_seconds",
			Help:      "Wall time of a single collection export.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.exportsTotal,
		m.batchesTotal,
		m.exportDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveExport records the outcome of one collection export.
func (m *Metrics) ObserveExport(format string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.exportsTotal.WithLabelValues(format, status).Inc()
	m.exportDuration.Observe(duration.Seconds())
}

// ObserveBatchAborted records a batch that failed scene validation before
// any collection was attempted.
func (m *Metrics) ObserveBatchAborted(scope string) {
	m.batchesTotal.WithLabelValues(scope, "aborted").Inc()
}

// ObserveBatch records the outcome of an export batch.
func (m *Metrics) ObserveBatch(scope string, succeeded, total int) {
	status := "partial"
	switch {
	case total == 0 || succeeded == total:
		status = "success"
	case succeeded == 0:
		status = "failure"
	}
	m.batchesTotal.WithLabelValues(scope, status).Inc()
}
