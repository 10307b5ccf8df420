package mutate

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes aggregate timing and outcome counters via
// expvar, for deployments that prefer process-local metrics without external
// dependencies. Totals are kept in milliseconds per entity/action pair and
// counts per outcome.
type ExpvarMetricsRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	outcomes  map[string]map[string]int64
}

// ExpvarMetricsSnapshot captures a read-only view of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Outcomes    map[string]map[string]int64 `json:"outcomes_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder constructs an expvar-backed recorder published
// under the supplied name. When name is empty, a unique one is generated.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("mutation_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: make(map[string]float64),
		outcomes:  make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// RecordMutation accumulates the duration and outcome of one mutation.
func (r *ExpvarMetricsRecorder) RecordMutation(entity, action, outcome string, duration time.Duration) {
	op := entity + "." + action
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[op] += float64(duration.Milliseconds())
	byOutcome, ok := r.outcomes[op]
	if !ok {
		byOutcome = make(map[string]int64)
		r.outcomes[op] = byOutcome
	}
	byOutcome[outcome]++
}

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := ExpvarMetricsSnapshot{
		DurationsMS: make(map[string]float64, len(r.durations)),
		Outcomes:    make(map[string]map[string]int64, len(r.outcomes)),
		RecordedAt:  time.Now().UTC(),
	}
	for k, v := range r.durations {
		snap.DurationsMS[k] = v
	}
	for op, byOutcome := range r.outcomes {
		cp := make(map[string]int64, len(byOutcome))
		for outcome, n := range byOutcome {
			cp[outcome] = n
		}
		snap.Outcomes[op] = cp
	}
	return snap
}
