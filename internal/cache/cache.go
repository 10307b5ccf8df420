// Package cache implements the keyed in-memory collection store backing the
// optimistic mutation protocol. Entries hold the last server-confirmed or
// speculative collection state per (entity, scope, filters) key.
package cache

import (
	"context"
	"sync"
	"time"

	"talentcore/pkg/domain"
)

type entry[R domain.Record[R]] struct {
	collection domain.Collection[R]
	stale      bool
	updatedAt  time.Time
}

type pendingFetch struct {
	cancel context.CancelFunc
}

// Store is a mutex-guarded collection cache. Reads and writes are atomic:
// an updater either applies fully or not at all, and no two writes can
// interleave. That is the single-writer-at-a-time model the protocol needs.
type Store[R domain.Record[R]] struct {
	mu      sync.RWMutex
	entries map[Key]*entry[R]
	pending map[Key]*pendingFetch
	nowFn   func() time.Time
}

// New constructs an empty collection store.
func New[R domain.Record[R]]() *Store[R] {
	return &Store[R]{
		entries: make(map[Key]*entry[R]),
		pending: make(map[Key]*pendingFetch),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// Read returns a deep copy of the entry for key, if present. Stale entries
// are still served; callers decide whether to refresh.
func (s *Store[R]) Read(key Key) (domain.Collection[R], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return domain.Collection[R]{}, false
	}
	return e.collection.Clone(), true
}

// IsStale reports whether the entry for key exists and has been invalidated.
func (s *Store[R]) IsStale(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return ok && e.stale
}

// Write applies a pure transformation to the entry for key, creating it from
// the zero collection when absent. The updater receives and must return a
// collection by value; the store clones on both sides so updaters can never
// alias cached state. The written entry is considered live.
func (s *Store[R]) Write(key Key, updater func(domain.Collection[R]) domain.Collection[R]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current domain.Collection[R]
	if e, ok := s.entries[key]; ok {
		current = e.collection.Clone()
	}
	next := updater(current)
	s.entries[key] = &entry[R]{collection: next.Clone(), updatedAt: s.nowFn()}
}

// Replace overwrites the entry for key with the given collection.
func (s *Store[R]) Replace(key Key, coll domain.Collection[R]) {
	s.Write(key, func(domain.Collection[R]) domain.Collection[R] { return coll })
}

// Drop removes the entry for key entirely. Rollback uses this to restore
// "absent" when the mutation began with no cached entry.
func (s *Store[R]) Drop(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Invalidate marks every filter variant for (entity, scope) stale, so the
// next read triggers a refetch. Returns the number of entries marked.
func (s *Store[R]) Invalidate(entity domain.EntityType, scopeID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, e := range s.entries {
		if key.Entity == entity && key.ScopeID == scopeID && !e.stale {
			e.stale = true
			n++
		}
	}
	return n
}

// EvictScope drops every entry for the given scope, across all entities.
// Used when the active workspace changes.
func (s *Store[R]) EvictScope(scopeID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.entries {
		if key.ScopeID == scopeID {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// Refresh runs fetch under a cancelable context registered for key and, on
// success, replaces the entry with the fetched collection. A concurrent
// CancelPending aborts the fetch so a slow read can never clobber a
// speculative write that raced ahead of it.
func (s *Store[R]) Refresh(ctx context.Context, key Key, fetch func(context.Context) (domain.Collection[R], error)) error {
	ctx, cancel := context.WithCancel(ctx)
	token := &pendingFetch{cancel: cancel}
	s.mu.Lock()
	if prev, ok := s.pending[key]; ok {
		prev.cancel()
	}
	s.pending[key] = token
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.pending[key] == token {
			delete(s.pending, key)
		}
		s.mu.Unlock()
	}()

	coll, err := fetch(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Replace(key, coll)
	return nil
}

// CancelPending cancels any in-flight Refresh for key. Mutations call this
// before writing speculative state.
func (s *Store[R]) CancelPending(key Key) {
	s.mu.Lock()
	token, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	if ok {
		token.cancel()
	}
}

// Len reports the number of live entries.
func (s *Store[R]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
