package mutate

import "time"

// MetricsRecorder aggregates mutation timing and outcome counters.
type MetricsRecorder interface {
	// RecordMutation records one settled mutation cycle with its outcome
	// (committed or rolled_back) and end-to-end duration.
	RecordMutation(entity, action, outcome string, duration time.Duration)
}

// NoopMetrics discards all observations.
type NoopMetrics struct{}

// RecordMutation discards the observation.
func (NoopMetrics) RecordMutation(string, string, string, time.Duration) {}
