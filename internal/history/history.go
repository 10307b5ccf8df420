// Package history persists the user's recent quick-search selections.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"talentcore/internal/kv"
)

// maxEntries caps the retained history; the oldest entries fall off the end.
const maxEntries = 12

// Selection is one remembered quick-search pick.
type Selection struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

// Recents stores recent selections most-recent-first under one key in the
// injected store.
type Recents struct {
	store kv.Store
	key   string
}

// NewRecents binds a history list to a storage key, typically scoped per
// user ("recent-searches/<user-id>").
func NewRecents(store kv.Store, key string) *Recents {
	return &Recents{store: store, key: key}
}

// Load returns the persisted selections. Entries of type "action" are legacy
// command-palette commands; they are pruned on load and the pruned list is
// written back.
func (r *Recents) Load(ctx context.Context) ([]Selection, error) {
	raw, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var all []Selection
	if err := json.Unmarshal(raw, &all); err != nil {
		// A corrupt blob is not worth failing a search box over.
		return nil, nil
	}
	kept := all[:0]
	for _, sel := range all {
		if sel.Type == "action" {
			continue
		}
		kept = append(kept, sel)
	}
	if len(kept) != len(all) {
		if err := r.save(ctx, kept); err != nil {
			return nil, err
		}
	}
	return kept, nil
}

// Record inserts the selection at the head, removing any previous entry for
// the same (type, id) and truncating to the cap.
func (r *Recents) Record(ctx context.Context, sel Selection) error {
	existing, err := r.Load(ctx)
	if err != nil {
		return err
	}
	next := make([]Selection, 0, len(existing)+1)
	next = append(next, sel)
	for _, prev := range existing {
		if prev.Type == sel.Type && prev.ID == sel.ID {
			continue
		}
		next = append(next, prev)
	}
	if len(next) > maxEntries {
		next = next[:maxEntries]
	}
	return r.save(ctx, next)
}

// Clear removes the whole history.
func (r *Recents) Clear(ctx context.Context) error {
	if err := r.store.Remove(ctx, r.key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (r *Recents) save(ctx context.Context, selections []Selection) error {
	raw, err := json.Marshal(selections)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := r.store.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
