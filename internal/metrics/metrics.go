// Package metrics exposes Prometheus instruments for ledger operations and
// reconciliation runs. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "izposoja"

// Metrics groups the collectors registered by the service.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	violations prometheus.Gauge
	reconciles *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, alongside the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Ledger operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		violations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_violations",
			Help:      "Invariant violations found by the last reconciliation run.",
		}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.operations, m.duration, m.violations, m.reconciles)
	return m
}

// ObserveOperation records one engine operation. outcome is "ok" or the
// error kind that ended it.
func (m *Metrics) ObserveOperation(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveReconcile records the result of a reconciliation run.
func (m *Metrics) ObserveReconcile(violations int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reconciles.WithLabelValues("error").Inc()
		return
	}
	m.reconciles.WithLabelValues("ok").Inc()
	m.violations.Set(float64(violations))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
