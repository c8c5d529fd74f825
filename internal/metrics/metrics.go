// Package metrics exposes Prometheus metrics for resize and encode operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ivcompressor"

// Operation status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the operation metrics and the registry they are exposed from.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	PayloadBytes      *prometheus.HistogramVec
	InFlight          prometheus.Gauge
}

// New creates a Metrics instance backed by its own registry, including the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of resize and encode operations",
			},
			[]string{"operation", "status"},
		),

		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of resize and encode operations in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"operation"},
		),

		PayloadBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payload_bytes",
				Help:      "Size of operation inputs and outputs in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
			[]string{"operation", "direction"},
		),

		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "operations_in_flight",
				Help:      "Current number of operations being processed",
			},
		),
	}
}

// Track marks an operation as started and returns a function that records
// its outcome. The returned function must be called exactly once.
func (m *Metrics) Track(operation string, inputBytes int) func(outputBytes int, err error) {
	start := time.Now()
	m.InFlight.Inc()
	m.PayloadBytes.WithLabelValues(operation, "in").Observe(float64(inputBytes))

	return func(outputBytes int, err error) {
		m.InFlight.Dec()
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

		status := StatusSuccess
		if err != nil {
			status = StatusError
		} else {
			m.PayloadBytes.WithLabelValues(operation, "out").Observe(float64(outputBytes))
		}
		m.OperationsTotal.WithLabelValues(operation, status).Inc()
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
