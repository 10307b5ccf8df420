package mutate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exposes mutation counters and latency histograms
// through a prometheus registry.
type PrometheusMetricsRecorder struct {
	mutations *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the mutation metric families with the
// given registerer. A nil registerer falls back to the default one.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentcore_mutations_total",
			Help: "Count of resource mutations by entity, action and outcome.",
		}, []string{"entity", "action", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talentcore_mutation_duration_seconds",
			Help:    "Wall-clock duration of resource mutations from speculation to settle.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity", "action"}),
	}
	if err := reg.Register(rec.mutations); err != nil {
		return nil, err
	}
	if err := reg.Register(rec.durations); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordMutation increments the outcome counter and observes the duration.
func (r *PrometheusMetricsRecorder) RecordMutation(entity, action, outcome string, duration time.Duration) {
	r.mutations.WithLabelValues(entity, action, outcome).Inc()
	r.durations.WithLabelValues(entity, action).Observe(duration.Seconds())
}
