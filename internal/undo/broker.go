package undo

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Default replay windows. Deletes get a longer window than stage moves
// because a delete destroys data the user may want back.
const (
	DefaultDeleteTTL     = 8 * time.Second
	DefaultTransitionTTL = 5 * time.Second
)

// ReplayFunc performs the compensating mutation for one undo offer.
type ReplayFunc func(ctx context.Context) error

type offer struct {
	replay   ReplayFunc
	deadline time.Time
	timer    *time.Timer
}

// Broker tracks pending undo offers. Each offer is invocable at most once
// and expires after its TTL; expiry fires the onExpire callback, if any.
type Broker struct {
	mu     sync.Mutex
	offers map[string]*offer
	nowFn  func() time.Time
	seq    uint64
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{
		offers: make(map[string]*offer),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the broker's time source, for tests.
func (b *Broker) WithClock(nowFn func() time.Time) *Broker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nowFn = nowFn
	return b
}

// Offer registers a compensating action with the given TTL and returns the
// token the caller hands to the user. onExpire, when non-nil, runs once if
// the window lapses without an invoke.
func (b *Broker) Offer(ttl time.Duration, replay ReplayFunc, onExpire func()) Token {
	b.mu.Lock()
	b.seq++
	id := fmt.Sprintf("undo-%d", b.seq)
	deadline := b.nowFn().Add(ttl)
	o := &offer{replay: replay, deadline: deadline}
	b.offers[id] = o
	o.timer = time.AfterFunc(ttl, func() {
		if b.expire(id) && onExpire != nil {
			onExpire()
		}
	})
	b.mu.Unlock()
	return Token{ID: id, Deadline: deadline}
}

// expire removes the offer if it is still pending. It reports whether this
// call was the one that removed it.
func (b *Broker) expire(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.offers[id]; !ok {
		return false
	}
	delete(b.offers, id)
	return true
}

// Invoke runs the compensating action for the token. It reports whether the
// replay ran: false means the token was unknown, already used, or expired.
// The offer is consumed before the replay runs, so a second Invoke during a
// slow replay is a no-op.
func (b *Broker) Invoke(ctx context.Context, tok Token) (bool, error) {
	b.mu.Lock()
	o, ok := b.offers[tok.ID]
	if !ok {
		b.mu.Unlock()
		return false, nil
	}
	if !b.nowFn().Before(o.deadline) {
		b.mu.Unlock()
		return false, nil
	}
	delete(b.offers, tok.ID)
	o.timer.Stop()
	b.mu.Unlock()

	if err := o.replay(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Cancel withdraws a pending offer without running it.
func (b *Broker) Cancel(tok Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.offers[tok.ID]; ok {
		o.timer.Stop()
		delete(b.offers, tok.ID)
	}
}

// Pending returns the number of live offers.
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.offers)
}
