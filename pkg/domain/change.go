package domain

import "encoding/json"

// Action identifies the kind of mutation applied to a record.
type Action string

// Mutation actions recorded in change entries.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Outcome identifies how a mutation cycle settled.
type Outcome string

// Mutation outcomes, including the compensating undo replay.
const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeUndone     Outcome = "undone"
)

// Change captures the before/after state of a single record mutation as raw
// JSON snapshots. Payload bytes are cloned on access so shared changes cannot
// be mutated by callers.
type Change struct {
	Entity EntityType `json:"entity"`
	Action Action     `json:"action"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// NewChange marshals the before/after values into a change entry. A nil
// pointer leaves the corresponding snapshot unset.
func NewChange[R Record[R]](action Action, before, after *R) (Change, error) {
	var entity EntityType
	ch := Change{Action: action}
	if before != nil {
		raw, err := json.Marshal(*before)
		if err != nil {
			return Change{}, err
		}
		ch.Before = raw
		entity = (*before).Entity()
	}
	if after != nil {
		raw, err := json.Marshal(*after)
		if err != nil {
			return Change{}, err
		}
		ch.After = raw
		entity = (*after).Entity()
	}
	ch.Entity = entity
	return ch, nil
}

// DecodeChange unmarshals a raw change snapshot into a typed record.
func DecodeChange[R Record[R]](raw json.RawMessage) (R, bool) {
	var rec R
	if len(raw) == 0 {
		return rec, false
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, false
	}
	return rec, true
}
