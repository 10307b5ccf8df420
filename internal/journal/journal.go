// Package journal keeps an append-only audit trail of settled mutations.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"talentcore/pkg/domain"
)

// Entry is one settled mutation cycle.
type Entry struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	Action     string          `json:"action"`
	Outcome    string          `json:"outcome"`
	ScopeID    string          `json:"scope_id"`
	RecordID   string          `json:"record_id,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	Error      string          `json:"error,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Filter narrows a List call. Zero fields match everything.
type Filter struct {
	ScopeID string
	Entity  domain.EntityType
	Outcome domain.Outcome
	Limit   int
}

func (f Filter) matches(e Entry) bool {
	if f.ScopeID != "" && e.ScopeID != f.ScopeID {
		return false
	}
	if f.Entity != "" && e.Entity != string(f.Entity) {
		return false
	}
	if f.Outcome != "" && e.Outcome != string(f.Outcome) {
		return false
	}
	return true
}

// Journal appends and reads audit entries. List returns entries newest
// first.
type Journal interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}
