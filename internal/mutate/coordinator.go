// Package mutate implements the optimistic mutation coordinator: one generic
// state machine executing create/update/delete calls with speculative cache
// writes, rollback on failure, and settle-time invalidation.
package mutate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"talentcore/internal/cache"
	"talentcore/internal/notify"
	"talentcore/pkg/domain"
)

// State names the phases of one mutation cycle.
type State string

// Mutation states. A mutation moves Idle -> Speculating -> (Committed |
// RolledBack) -> Settled; no other transitions exist.
const (
	StateIdle        State = "idle"
	StateSpeculating State = "speculating"
	StateCommitted   State = "committed"
	StateRolledBack  State = "rolled_back"
	StateSettled     State = "settled"
)

// MutationOptions configures the user-facing side of one mutation. When
// SuccessMessage is empty the caller owns the success notification (it may
// need to bind an undo action that only exists after the mutation commits);
// error notifications are always emitted by the coordinator.
type MutationOptions struct {
	SuccessMessage string
	ActionLabel    string
	Action         func()
	Duration       time.Duration
}

// Coordinator orchestrates optimistic mutations for one resource type.
// It is safe for concurrent use; each call owns a private mutation context.
// Two concurrent mutations on the same key are not serialized: whichever
// settles last wins, and a rollback restores that mutation's own snapshot
// even if another mutation has written over it since.
type Coordinator[R domain.Record[R]] struct {
	entity   domain.EntityType
	cache    *cache.Store[R]
	client   Collaborator[R]
	notifier notify.Notifier
	metrics  MetricsRecorder
	journal  Sink
	logger   *slog.Logger
	nowFn    func() time.Time
	tempID   func() string
}

// Option customizes a coordinator.
type Option[R domain.Record[R]] func(*Coordinator[R])

// WithNotifier sets the notification sink.
func WithNotifier[R domain.Record[R]](n notify.Notifier) Option[R] {
	return func(c *Coordinator[R]) { c.notifier = n }
}

// WithMetrics sets the metrics recorder.
func WithMetrics[R domain.Record[R]](m MetricsRecorder) Option[R] {
	return func(c *Coordinator[R]) { c.metrics = m }
}

// WithJournal sets the mutation audit sink.
func WithJournal[R domain.Record[R]](s Sink) Option[R] {
	return func(c *Coordinator[R]) { c.journal = s }
}

// WithLogger sets the structured logger.
func WithLogger[R domain.Record[R]](l *slog.Logger) Option[R] {
	return func(c *Coordinator[R]) { c.logger = l }
}

// WithClock overrides the time source, for tests.
func WithClock[R domain.Record[R]](nowFn func() time.Time) Option[R] {
	return func(c *Coordinator[R]) { c.nowFn = nowFn }
}

// WithTempIDFn overrides temporary id generation, for tests.
func WithTempIDFn[R domain.Record[R]](fn func() string) Option[R] {
	return func(c *Coordinator[R]) { c.tempID = fn }
}

// NewCoordinator constructs a coordinator over the given cache store and
// HTTP collaborator.
func NewCoordinator[R domain.Record[R]](store *cache.Store[R], client Collaborator[R], opts ...Option[R]) *Coordinator[R] {
	var zero R
	c := &Coordinator[R]{
		entity:   zero.Entity(),
		cache:    store,
		client:   client,
		notifier: notify.Noop{},
		metrics:  NoopMetrics{},
		logger:   slog.Default(),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	c.tempID = func() string {
		return fmt.Sprintf("tmp-%d-%s", c.nowFn().UnixMilli(), uuid.NewString()[:8])
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the underlying collection store.
func (c *Coordinator[R]) Cache() *cache.Store[R] { return c.cache }

// mutationContext holds the rollback snapshot of one in-flight mutation.
// It is consumed exactly once: by rollback on failure or by undo capture on
// success, then discarded.
type mutationContext[R domain.Record[R]] struct {
	key      cache.Key
	snapshot domain.Collection[R]
	hadEntry bool
	consumed bool
}

func (c *Coordinator[R]) begin(key cache.Key) *mutationContext[R] {
	snapshot, ok := c.cache.Read(key)
	return &mutationContext[R]{key: key, snapshot: snapshot, hadEntry: ok}
}

// rollback restores the captured snapshot verbatim. It is a no-op if the
// context was already consumed.
func (c *Coordinator[R]) rollback(mctx *mutationContext[R]) {
	if mctx.consumed {
		return
	}
	mctx.consumed = true
	if mctx.hadEntry {
		c.cache.Replace(mctx.key, mctx.snapshot)
		return
	}
	c.cache.Drop(mctx.key)
}

// Create speculatively appends the record under a temporary id, issues the
// create call, and on success swaps in the server-confirmed record. The
// temporary id never survives the cycle.
func (c *Coordinator[R]) Create(ctx context.Context, key cache.Key, record R, opts MutationOptions) (R, error) {
	start := c.nowFn()
	c.cache.CancelPending(key)
	mctx := c.begin(key)

	temp := record.WithRecordID(c.tempID())
	c.cache.Write(key, func(coll domain.Collection[R]) domain.Collection[R] {
		coll.Records = append(coll.Records, temp)
		coll.Total++
		return coll
	})
	c.logger.Debug("mutation speculating", "entity", string(c.entity), "action", "create", "key", key.String(), "temp_id", temp.RecordID())

	confirmed, err := c.client.Create(ctx, record)
	if err != nil {
		c.rollback(mctx)
		c.notifyError(err)
		c.settle(ctx, key, domain.ActionCreate, nil, &record, domain.OutcomeRolledBack, err, start)
		var zero R
		return zero, err
	}

	tempID := temp.RecordID()
	c.cache.Write(key, func(coll domain.Collection[R]) domain.Collection[R] {
		if _, idx := coll.Find(tempID); idx >= 0 {
			coll.Records[idx] = confirmed.Clone()
		}
		return coll
	})
	mctx.consumed = true
	c.notifySuccess(opts)
	c.settle(ctx, key, domain.ActionCreate, nil, &confirmed, domain.OutcomeCommitted, nil, start)
	return confirmed, nil
}

// Update speculatively applies the local patch function to the cached
// record (when the record is cached at this key), issues the update call,
// and on success swaps in the server-confirmed record.
func (c *Coordinator[R]) Update(ctx context.Context, key cache.Key, id string, patch domain.Patch, apply func(R) R, opts MutationOptions) (R, error) {
	start := c.nowFn()
	c.cache.CancelPending(key)
	mctx := c.begin(key)

	var before *R
	if rec, idx := mctx.snapshot.Find(id); idx >= 0 {
		b := rec.Clone()
		before = &b
		c.cache.Write(key, func(coll domain.Collection[R]) domain.Collection[R] {
			if cur, i := coll.Find(id); i >= 0 {
				coll.Records[i] = apply(cur)
			}
			return coll
		})
	}
	c.logger.Debug("mutation speculating", "entity", string(c.entity), "action", "update", "key", key.String(), "id", id)

	confirmed, err := c.client.Update(ctx, id, patch)
	if err != nil {
		c.rollback(mctx)
		c.notifyError(err)
		c.settle(ctx, key, domain.ActionUpdate, before, nil, domain.OutcomeRolledBack, err, start)
		var zero R
		return zero, err
	}

	c.cache.Write(key, func(coll domain.Collection[R]) domain.Collection[R] {
		if _, i := coll.Find(id); i >= 0 {
			coll.Records[i] = confirmed.Clone()
		}
		return coll
	})
	mctx.consumed = true
	c.notifySuccess(opts)
	c.settle(ctx, key, domain.ActionUpdate, before, &confirmed, domain.OutcomeCommitted, nil, start)
	return confirmed, nil
}

// Delete speculatively removes the record, issues the delete call, and
// returns the removed record so the caller can offer a compensating undo.
func (c *Coordinator[R]) Delete(ctx context.Context, key cache.Key, id string, opts MutationOptions) (R, error) {
	start := c.nowFn()
	c.cache.CancelPending(key)
	mctx := c.begin(key)

	deleted, idx := mctx.snapshot.Find(id)
	if idx >= 0 {
		c.cache.Write(key, func(coll domain.Collection[R]) domain.Collection[R] {
			if _, i := coll.Find(id); i >= 0 {
				coll.Records = append(coll.Records[:i], coll.Records[i+1:]...)
				coll.Total--
			}
			return coll
		})
	}
	c.logger.Debug("mutation speculating", "entity", string(c.entity), "action", "delete", "key", key.String(), "id", id)

	if err := c.client.Delete(ctx, id); err != nil {
		c.rollback(mctx)
		c.notifyError(err)
		c.settle(ctx, key, domain.ActionDelete, &deleted, nil, domain.OutcomeRolledBack, err, start)
		var zero R
		return zero, err
	}

	mctx.consumed = true
	c.notifySuccess(opts)
	c.settle(ctx, key, domain.ActionDelete, &deleted, nil, domain.OutcomeCommitted, nil, start)
	return deleted, nil
}

// List serves the cached collection when live, refreshing through the
// collaborator when the entry is absent or stale. A failed refresh falls
// back to the stale entry when one exists.
func (c *Coordinator[R]) List(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[R], error) {
	key := cache.KeyFor(c.entity, scopeID, filters)
	if coll, ok := c.cache.Read(key); ok && !c.cache.IsStale(key) {
		return coll, nil
	}
	err := c.cache.Refresh(ctx, key, func(ctx context.Context) (domain.Collection[R], error) {
		return c.client.List(ctx, scopeID, filters)
	})
	if err != nil {
		if coll, ok := c.cache.Read(key); ok {
			c.logger.Warn("serving stale collection after refresh failure", "key", key.String(), "error", err)
			return coll, nil
		}
		return domain.Collection[R]{}, err
	}
	coll, _ := c.cache.Read(key)
	return coll, nil
}

func (c *Coordinator[R]) notifySuccess(opts MutationOptions) {
	if opts.SuccessMessage == "" {
		return
	}
	c.notifier.Show(notify.Message{
		Text:        opts.SuccessMessage,
		Type:        notify.TypeSuccess,
		Duration:    opts.Duration,
		ActionLabel: opts.ActionLabel,
		Action:      opts.Action,
	})
}

func (c *Coordinator[R]) notifyError(err error) {
	c.notifier.Show(notify.Message{Text: err.Error(), Type: notify.TypeError})
}

// settle is the terminal step of every mutation: invalidate all filter
// variants for the scope, record metrics, and append the audit entry.
func (c *Coordinator[R]) settle(ctx context.Context, key cache.Key, action domain.Action, before, after *R, outcome domain.Outcome, cause error, start time.Time) {
	c.cache.Invalidate(key.Entity, key.ScopeID)
	c.metrics.RecordMutation(string(c.entity), string(action), string(outcome), c.nowFn().Sub(start))
	if c.journal == nil {
		return
	}
	change, err := domain.NewChange(action, before, after)
	if err != nil {
		c.logger.Warn("journal change encode failed", "entity", string(c.entity), "error", err)
		return
	}
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	c.journal.Record(ctx, key.ScopeID, change, outcome, errMsg)
}
