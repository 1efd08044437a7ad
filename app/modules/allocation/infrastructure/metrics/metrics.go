package allocationmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records allocation engine activity. Conflicts are counted per type
// through RecordConflict.
type Metrics interface {
	RecordGeneration(allocations int, duration time.Duration)
	RecordEdit(operation string)
	RecordConflict(conflictType string)
}

// PrometheusMetrics implements Metrics with prometheus collectors.
type PrometheusMetrics struct {
	generations        prometheus.Counter
	allocationsCreated prometheus.Counter
	generationSeconds  prometheus.Histogram
	edits              *prometheus.CounterVec
	conflicts          *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers the allocation collectors.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "allocation_generations_total",
			Help: "Number of allocation generation runs.",
		}),
		allocationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "allocations_created_total",
			Help: "Number of allocations produced by generation runs.",
		}),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "allocation_generation_duration_seconds",
			Help:    "Duration of allocation generation runs.",
			Buckets: prometheus.DefBuckets,
		}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_edits_total",
			Help: "Number of post-generation edits by operation.",
		}, []string{"operation"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_conflicts_total",
			Help: "Number of conflicts flagged, by type.",
		}, []string{"type"}),
	}
	reg.MustRegister(m.generations, m.allocationsCreated, m.generationSeconds, m.edits, m.conflicts)
	return m
}

func (m *PrometheusMetrics) RecordGeneration(allocations int, duration time.Duration) {
	m.generations.Inc()
	m.allocationsCreated.Add(float64(allocations))
	m.generationSeconds.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordEdit(operation string) {
	m.edits.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordConflict(conflictType string) {
	m.conflicts.WithLabelValues(conflictType).Inc()
}

// NoOpMetrics discards all observations. Used in tests.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordGeneration(int, time.Duration) {}
func (NoOpMetrics) RecordEdit(string)                   {}
func (NoOpMetrics) RecordConflict(string)               {}

var (
	_ Metrics = (*PrometheusMetrics)(nil)
	_ Metrics = NoOpMetrics{}
)
