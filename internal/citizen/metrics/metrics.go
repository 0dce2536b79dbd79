package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the citizen module.
type Metrics struct {
	// Operation outcomes by op and result
	Operations *prometheus.CounterVec

	// Operation latency by op
	OperationLatency *prometheus.HistogramVec

	// Records moved through the CSV pipeline, by direction
	RecordsTransferred *prometheus.CounterVec
}

// New creates a Metrics instance with all citizen module metrics registered
// on reg. A nil reg falls back to the default registerer; passing a dedicated
// registry keeps instances independently instantiable under test.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_citizen_operations_total",
			Help: "Total citizen operations by op and outcome",
		}, []string{"op", "outcome"}), // outcome: "ok", "not_found", "conflict", "invalid", "error"

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civreg_citizen_operation_duration_seconds",
			Help:    "Duration of citizen operations including storage I/O",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),

		RecordsTransferred: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_citizen_records_transferred_total",
			Help: "Total records moved through CSV export/import",
		}, []string{"direction"}), // direction: "export", "import"
	}
}

// RecordOperation records one operation outcome with its duration.
func (m *Metrics) RecordOperation(op, outcome string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(op, outcome).Inc()
		m.OperationLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}

// AddTransferred records n records moved through the CSV pipeline.
func (m *Metrics) AddTransferred(direction string, n int) {
	if m != nil {
		m.RecordsTransferred.WithLabelValues(direction).Add(float64(n))
	}
}
