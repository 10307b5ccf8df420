package mutate

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"talentcore/internal/cache"
	"talentcore/internal/notify"
	"talentcore/pkg/domain"
)

type fakeClient struct {
	mu        sync.Mutex
	createFn  func(ctx context.Context, record domain.Candidate) (domain.Candidate, error)
	updateFn  func(ctx context.Context, id string, patch domain.Patch) (domain.Candidate, error)
	deleteFn  func(ctx context.Context, id string) error
	listFn    func(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[domain.Candidate], error)
	listCalls int
}

func (f *fakeClient) Create(ctx context.Context, record domain.Candidate) (domain.Candidate, error) {
	return f.createFn(ctx, record)
}

func (f *fakeClient) Update(ctx context.Context, id string, patch domain.Patch) (domain.Candidate, error) {
	return f.updateFn(ctx, id, patch)
}

func (f *fakeClient) Delete(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

func (f *fakeClient) List(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[domain.Candidate], error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	return f.listFn(ctx, scopeID, filters)
}

type captureMetrics struct {
	mu      sync.Mutex
	entries []string
}

func (m *captureMetrics) RecordMutation(entity, action, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entity+"/"+action+"/"+outcome)
}

type captureSink struct {
	mu      sync.Mutex
	entries []domain.Change
	outcome domain.Outcome
	errMsg  string
}

func (s *captureSink) Record(_ context.Context, _ string, change domain.Change, outcome domain.Outcome, errMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, change)
	s.outcome = outcome
	s.errMsg = errMessage
}

func candidate(id, name string) domain.Candidate {
	return domain.Candidate{
		Base:        domain.Base{ID: id},
		WorkspaceID: "ws-1",
		Name:        name,
		Email:       strings.ToLower(name) + "@example.com",
	}
}

func seedStore(t *testing.T, key cache.Key, records ...domain.Candidate) *cache.Store[domain.Candidate] {
	t.Helper()
	store := cache.New[domain.Candidate]()
	store.Replace(key, domain.Collection[domain.Candidate]{Records: records, Total: len(records)})
	return store
}

func TestCreateCommitsConfirmedRecord(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	store := seedStore(t, key, candidate("c-1", "Ada"))

	var observedDuringCall domain.Collection[domain.Candidate]
	client := &fakeClient{
		createFn: func(_ context.Context, record domain.Candidate) (domain.Candidate, error) {
			observedDuringCall, _ = store.Read(key)
			return record.WithRecordID("c-2"), nil
		},
	}
	coord := NewCoordinator[domain.Candidate](store, client,
		WithTempIDFn[domain.Candidate](func() string { return "tmp-fixed" }),
	)

	confirmed, err := coord.Create(context.Background(), key, candidate("", "Grace"), MutationOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if confirmed.ID != "c-2" {
		t.Fatalf("confirmed id = %q, want c-2", confirmed.ID)
	}

	if got := len(observedDuringCall.Records); got != 2 {
		t.Fatalf("records while request in flight = %d, want 2", got)
	}
	if observedDuringCall.Records[1].ID != "tmp-fixed" {
		t.Fatalf("in-flight record id = %q, want tmp-fixed", observedDuringCall.Records[1].ID)
	}
	if observedDuringCall.Total != 2 {
		t.Fatalf("in-flight total = %d, want 2", observedDuringCall.Total)
	}

	final, ok := store.Read(key)
	if !ok {
		t.Fatal("collection missing after commit")
	}
	if final.Total != 2 {
		t.Fatalf("final total = %d, want 2", final.Total)
	}
	for _, rec := range final.Records {
		if strings.HasPrefix(rec.ID, "tmp-") {
			t.Fatalf("temporary id %q survived the commit", rec.ID)
		}
	}
	if _, idx := final.Find("c-2"); idx < 0 {
		t.Fatal("confirmed record not in collection")
	}
}

func TestCreateFailureRevertsCollection(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	seed := []domain.Candidate{candidate("c-1", "Ada"), candidate("c-2", "Grace")}
	store := seedStore(t, key, seed...)
	before, _ := store.Read(key)

	notifier := &notify.Capture{}
	metrics := &captureMetrics{}
	client := &fakeClient{
		createFn: func(context.Context, domain.Candidate) (domain.Candidate, error) {
			return domain.Candidate{}, &domain.APIError{Message: "workspace quota exceeded", Status: 422}
		},
	}
	coord := NewCoordinator[domain.Candidate](store, client,
		WithNotifier[domain.Candidate](notifier),
		WithMetrics[domain.Candidate](metrics),
	)

	_, err := coord.Create(context.Background(), key, candidate("", "Linus"), MutationOptions{})
	if err == nil {
		t.Fatal("expected create error")
	}

	after, ok := store.Read(key)
	if !ok {
		t.Fatal("collection missing after rollback")
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("collection not reverted\nbefore: %+v\nafter:  %+v", before, after)
	}

	msg, ok := notifier.Last()
	if !ok {
		t.Fatal("no notification emitted")
	}
	if msg.Type != notify.TypeError {
		t.Fatalf("notification type = %q, want error", msg.Type)
	}
	if !strings.Contains(msg.Text, "workspace quota exceeded") {
		t.Fatalf("notification text = %q", msg.Text)
	}

	if len(metrics.entries) != 1 || metrics.entries[0] != "candidate/create/rolled_back" {
		t.Fatalf("metrics entries = %v", metrics.entries)
	}
}

func TestCreateFailureOnEmptyCacheDropsEntry(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	store := cache.New[domain.Candidate]()
	client := &fakeClient{
		createFn: func(context.Context, domain.Candidate) (domain.Candidate, error) {
			return domain.Candidate{}, errors.New("boom")
		},
	}
	coord := NewCoordinator[domain.Candidate](store, client)

	if _, err := coord.Create(context.Background(), key, candidate("", "Ada"), MutationOptions{}); err == nil {
		t.Fatal("expected create error")
	}
	if _, ok := store.Read(key); ok {
		t.Fatal("speculative entry survived rollback on previously absent key")
	}
}

func TestUpdateCommitReplacesWithConfirmed(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	store := seedStore(t, key, candidate("c-1", "Ada"))

	client := &fakeClient{
		updateFn: func(_ context.Context, id string, patch domain.Patch) (domain.Candidate, error) {
			rec := candidate(id, "Ada")
			rec.Name = patch["name"].(string)
			rec.UpdatedAt = time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
			return rec, nil
		},
	}
	notifier := &notify.Capture{}
	coord := NewCoordinator[domain.Candidate](store, client,
		WithNotifier[domain.Candidate](notifier),
	)

	patch := domain.Patch{"name": "Ada Lovelace"}
	confirmed, err := coord.Update(context.Background(), key, "c-1", patch,
		func(r domain.Candidate) domain.Candidate { r.Name = "Ada Lovelace"; return r },
		MutationOptions{SuccessMessage: "Candidate updated"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if confirmed.UpdatedAt.IsZero() {
		t.Fatal("confirmed record missing server timestamp")
	}

	coll, _ := store.Read(key)
	rec, idx := coll.Find("c-1")
	if idx < 0 {
		t.Fatal("record missing after update")
	}
	if rec.Name != "Ada Lovelace" || rec.UpdatedAt.IsZero() {
		t.Fatalf("cached record = %+v, want server-confirmed copy", rec)
	}

	msg, ok := notifier.Last()
	if !ok || msg.Type != notify.TypeSuccess || msg.Text != "Candidate updated" {
		t.Fatalf("success notification = %+v, ok=%v", msg, ok)
	}
}

func TestUpdateFailureRestoresSnapshot(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	store := seedStore(t, key, candidate("c-1", "Ada"))
	before, _ := store.Read(key)

	notifier := &notify.Capture{}
	client := &fakeClient{
		updateFn: func(context.Context, string, domain.Patch) (domain.Candidate, error) {
			return domain.Candidate{}, &domain.APIError{Message: "Network error", Status: 0}
		},
	}
	coord := NewCoordinator[domain.Candidate](store, client,
		WithNotifier[domain.Candidate](notifier),
	)

	_, err := coord.Update(context.Background(), key, "c-1", domain.Patch{"name": "Mallory"},
		func(r domain.Candidate) domain.Candidate { r.Name = "Mallory"; return r },
		MutationOptions{})
	if err == nil {
		t.Fatal("expected update error")
	}

	after, _ := store.Read(key)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("collection not reverted\nbefore: %+v\nafter:  %+v", before, after)
	}
	msg, ok := notifier.Last()
	if !ok || msg.Type != notify.TypeError || !strings.Contains(msg.Text, "Network error") {
		t.Fatalf("error notification = %+v, ok=%v", msg, ok)
	}
}

func TestDeleteReturnsRemovedRecord(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	store := seedStore(t, key, candidate("c-1", "Ada"), candidate("c-2", "Grace"))

	client := &fakeClient{
		deleteFn: func(context.Context, string) error { return nil },
	}
	coord := NewCoordinator[domain.Candidate](store, client)

	deleted, err := coord.Delete(context.Background(), key, "c-1", MutationOptions{})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.ID != "c-1" || deleted.Name != "Ada" {
		t.Fatalf("deleted record = %+v", deleted)
	}

	coll, _ := store.Read(key)
	if coll.Total != 1 {
		t.Fatalf("total = %d, want 1", coll.Total)
	}
	if _, idx := coll.Find("c-1"); idx >= 0 {
		t.Fatal("deleted record still cached")
	}
}

func TestDeleteFailureRestoresRecord(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	store := seedStore(t, key, candidate("c-1", "Ada"))
	before, _ := store.Read(key)

	client := &fakeClient{
		deleteFn: func(context.Context, string) error {
			return &domain.APIError{Message: "conflict", Status: 409}
		},
	}
	coord := NewCoordinator[domain.Candidate](store, client)

	if _, err := coord.Delete(context.Background(), key, "c-1", MutationOptions{}); err == nil {
		t.Fatal("expected delete error")
	}
	after, _ := store.Read(key)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("collection not reverted\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestSettleInvalidatesAllFilterVariants(t *testing.T) {
	base := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	filtered := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{Search: "grace", Page: 2})
	otherScope := cache.KeyFor(domain.EntityCandidate, "ws-2", cache.Filters{})

	store := seedStore(t, base, candidate("c-1", "Ada"))
	store.Replace(filtered, domain.Collection[domain.Candidate]{Records: []domain.Candidate{candidate("c-2", "Grace")}, Total: 1})
	store.Replace(otherScope, domain.Collection[domain.Candidate]{Total: 0})

	client := &fakeClient{
		deleteFn: func(context.Context, string) error { return nil },
	}
	coord := NewCoordinator[domain.Candidate](store, client)
	if _, err := coord.Delete(context.Background(), base, "c-1", MutationOptions{}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if !store.IsStale(base) {
		t.Fatal("mutated key not marked stale")
	}
	if !store.IsStale(filtered) {
		t.Fatal("sibling filter variant not marked stale")
	}
	if store.IsStale(otherScope) {
		t.Fatal("unrelated scope marked stale")
	}
}

func TestListServesLiveCacheWithoutRefetch(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	store := seedStore(t, key, candidate("c-1", "Ada"))
	client := &fakeClient{
		listFn: func(context.Context, string, cache.Filters) (domain.Collection[domain.Candidate], error) {
			t.Fatal("live cache entry should not trigger a fetch")
			return domain.Collection[domain.Candidate]{}, nil
		},
	}
	coord := NewCoordinator[domain.Candidate](store, client)

	coll, err := coord.List(context.Background(), "ws-1", cache.Filters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if coll.Total != 1 {
		t.Fatalf("total = %d, want 1", coll.Total)
	}
}

func TestListRefreshesStaleEntry(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	store := seedStore(t, key, candidate("c-1", "Ada"))
	store.Invalidate(domain.EntityCandidate, "ws-1")

	fresh := domain.Collection[domain.Candidate]{
		Records: []domain.Candidate{candidate("c-1", "Ada"), candidate("c-2", "Grace")},
		Total:   2,
	}
	client := &fakeClient{
		listFn: func(context.Context, string, cache.Filters) (domain.Collection[domain.Candidate], error) {
			return fresh, nil
		},
	}
	coord := NewCoordinator[domain.Candidate](store, client)

	coll, err := coord.List(context.Background(), "ws-1", cache.Filters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if coll.Total != 2 {
		t.Fatalf("total = %d, want 2", coll.Total)
	}
	if store.IsStale(key) {
		t.Fatal("entry still stale after refresh")
	}
}

func TestListFallsBackToStaleOnRefreshFailure(t *testing.T) {
	store := seedStore(t, cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{}), candidate("c-1", "Ada"))
	store.Invalidate(domain.EntityCandidate, "ws-1")

	client := &fakeClient{
		listFn: func(context.Context, string, cache.Filters) (domain.Collection[domain.Candidate], error) {
			return domain.Collection[domain.Candidate]{}, errors.New("upstream down")
		},
	}
	coord := NewCoordinator[domain.Candidate](store, client)

	coll, err := coord.List(context.Background(), "ws-1", cache.Filters{})
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if coll.Total != 1 {
		t.Fatalf("total = %d, want stale collection with 1", coll.Total)
	}
}

func TestListErrorsWhenNothingCached(t *testing.T) {
	store := cache.New[domain.Candidate]()
	client := &fakeClient{
		listFn: func(context.Context, string, cache.Filters) (domain.Collection[domain.Candidate], error) {
			return domain.Collection[domain.Candidate]{}, errors.New("upstream down")
		},
	}
	coord := NewCoordinator[domain.Candidate](store, client)

	if _, err := coord.List(context.Background(), "ws-1", cache.Filters{}); err == nil {
		t.Fatal("expected error when no cached entry exists")
	}
}

func TestSettleRecordsJournalEntry(t *testing.T) {
	key := cache.KeyFor(domain.EntityCandidate, "ws-1", cache.Filters{})
	store := seedStore(t, key, candidate("c-1", "Ada"))

	sink := &captureSink{}
	client := &fakeClient{
		deleteFn: func(context.Context, string) error { return nil },
	}
	coord := NewCoordinator[domain.Candidate](store, client,
		WithJournal[domain.Candidate](sink),
	)

	if _, err := coord.Delete(context.Background(), key, "c-1", MutationOptions{}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(sink.entries))
	}
	change := sink.entries[0]
	if change.Action != domain.ActionDelete || change.Entity != domain.EntityCandidate {
		t.Fatalf("journal change = %+v", change)
	}
	before, ok := domain.DecodeChange[domain.Candidate](change.Before)
	if !ok || before.ID != "c-1" {
		t.Fatalf("journal before payload = %+v, ok=%v", before, ok)
	}
	if sink.outcome != domain.OutcomeCommitted {
		t.Fatalf("journal outcome = %q", sink.outcome)
	}
}

func TestDefaultTempIDFormat(t *testing.T) {
	store := cache.New[domain.Candidate]()
	coord := NewCoordinator[domain.Candidate](store, &fakeClient{})
	id := coord.tempID()
	if !strings.HasPrefix(id, "tmp-") {
		t.Fatalf("temp id %q missing tmp- prefix", id)
	}
	parts := strings.Split(id, "-")
	if len(parts) != 3 || len(parts[2]) != 8 {
		t.Fatalf("temp id %q not in tmp-<millis>-<suffix> form", id)
	}
}
