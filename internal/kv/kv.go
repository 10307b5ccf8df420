// Package kv provides the small durable key-value store behind user-scoped
// client state such as recent-search history.
package kv

import "context"

// Store is a byte-oriented key-value store. Get reports presence separately
// from errors so callers can distinguish "never written" from a backend
// failure.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
