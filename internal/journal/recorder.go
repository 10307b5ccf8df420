package journal

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"talentcore/pkg/domain"
)

// Recorder adapts a Journal to the coordinator's audit sink. Entry ids are
// ULIDs so lexicographic order matches occurrence order.
type Recorder struct {
	journal Journal
	logger  *slog.Logger
	nowFn   func() time.Time
}

// NewRecorder wraps the journal. A nil logger falls back to slog.Default.
func NewRecorder(j Journal, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		journal: j,
		logger:  logger,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// Record appends the settled mutation. Append failures are logged, never
// surfaced: auditing must not fail the mutation path.
func (r *Recorder) Record(ctx context.Context, scopeID string, change domain.Change, outcome domain.Outcome, errMessage string) {
	now := r.nowFn()
	entry := Entry{
		ID:         ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Entity:     string(change.Entity),
		Action:     string(change.Action),
		Outcome:    string(outcome),
		ScopeID:    scopeID,
		RecordID:   recordID(change),
		Before:     change.Before,
		After:      change.After,
		Error:      errMessage,
		OccurredAt: now,
	}
	if err := r.journal.Append(ctx, entry); err != nil {
		r.logger.Error("journal append failed", "entity", entry.Entity, "action", entry.Action, "error", err)
	}
}

// recordID pulls the record id out of the raw snapshots, preferring the
// post-mutation state.
func recordID(change domain.Change) string {
	for _, raw := range [][]byte{change.After, change.Before} {
		if len(raw) == 0 {
			continue
		}
		var probe struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(raw, &probe) == nil && probe.ID != "" {
			return probe.ID
		}
	}
	return ""
}
