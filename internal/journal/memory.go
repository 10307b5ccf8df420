package journal

import (
	"context"
	"sync"
)

// Memory is an in-memory Journal, newest entries appended last internally
// and returned first.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemory constructs an empty in-memory journal.
func NewMemory() *Memory { return &Memory{} }

// Append stores the entry.
func (m *Memory) Append(_ context.Context, entry Entry) error {
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
	return nil
}

// List returns matching entries, newest first.
func (m *Memory) List(_ context.Context, filter Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if !filter.matches(m.entries[i]) {
			continue
		}
		out = append(out, m.entries[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
