package ats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"talentcore/internal/cache"
	"talentcore/internal/notify"
	"talentcore/internal/undo"
	"talentcore/pkg/domain"
)

type fakeClient[R domain.Record[R]] struct {
	createFn func(ctx context.Context, record R) (R, error)
	updateFn func(ctx context.Context, id string, patch domain.Patch) (R, error)
	deleteFn func(ctx context.Context, id string) error
	listFn   func(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[R], error)
}

func (f *fakeClient[R]) Create(ctx context.Context, record R) (R, error) {
	if f.createFn == nil {
		var zero R
		return zero, errors.New("create not stubbed")
	}
	return f.createFn(ctx, record)
}

func (f *fakeClient[R]) Update(ctx context.Context, id string, patch domain.Patch) (R, error) {
	if f.updateFn == nil {
		var zero R
		return zero, errors.New("update not stubbed")
	}
	return f.updateFn(ctx, id, patch)
}

func (f *fakeClient[R]) Delete(ctx context.Context, id string) error {
	if f.deleteFn == nil {
		return errors.New("delete not stubbed")
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeClient[R]) List(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[R], error) {
	if f.listFn == nil {
		return domain.Collection[R]{}, errors.New("list not stubbed")
	}
	return f.listFn(ctx, scopeID, filters)
}

func candidateFixture(id string) domain.Candidate {
	return domain.Candidate{
		Base:        domain.Base{ID: id},
		WorkspaceID: "ws-1",
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		Tags:        []string{"vip"},
	}
}

func applicationFixture(id string, stage domain.ApplicationStage) domain.Application {
	return domain.Application{
		Base:        domain.Base{ID: id},
		WorkspaceID: "ws-1",
		JobID:       "j-1",
		CandidateID: "c-1",
		Stage:       stage,
	}
}

func seedCandidates(s *Service, records ...domain.Candidate) cache.Key {
	key := baseKey[domain.Candidate]("ws-1")
	s.candidates.Cache().Replace(key, domain.Collection[domain.Candidate]{Records: records, Total: len(records)})
	return key
}

func seedApplications(s *Service, records ...domain.Application) cache.Key {
	key := baseKey[domain.Application]("ws-1")
	s.applications.Cache().Replace(key, domain.Collection[domain.Application]{Records: records, Total: len(records)})
	return key
}

func TestDeleteCandidateUndoWithinWindowRestoresRecord(t *testing.T) {
	notifier := &notify.Capture{}
	var nextID int
	client := &fakeClient[domain.Candidate]{
		deleteFn: func(context.Context, string) error { return nil },
		createFn: func(_ context.Context, record domain.Candidate) (domain.Candidate, error) {
			nextID++
			return record.WithRecordID(fmt.Sprintf("c-new-%d", nextID)), nil
		},
	}
	s := NewService(Clients{Candidates: client}, Options{Notifier: notifier})
	key := seedCandidates(s, candidateFixture("c-1"), candidateFixture("c-2"))

	if err := s.DeleteCandidate(context.Background(), "ws-1", "c-1"); err != nil {
		t.Fatalf("DeleteCandidate: %v", err)
	}

	coll, _ := s.candidates.Cache().Read(key)
	if coll.Total != 1 {
		t.Fatalf("total after delete = %d, want 1", coll.Total)
	}

	msg, ok := notifier.Last()
	if !ok || msg.Text != "Candidate deleted" || msg.ActionLabel != "Undo" || msg.Action == nil {
		t.Fatalf("delete notification = %+v, ok=%v", msg, ok)
	}
	if msg.Duration != undo.DefaultDeleteTTL {
		t.Fatalf("duration = %v, want %v", msg.Duration, undo.DefaultDeleteTTL)
	}

	msg.Action() // invoke the undo

	coll, _ = s.candidates.Cache().Read(key)
	if coll.Total != 2 {
		t.Fatalf("total after undo = %d, want 2", coll.Total)
	}
	restored, idx := coll.Find("c-new-1")
	if idx < 0 {
		t.Fatalf("restored record missing: %+v", coll.Records)
	}
	if restored.Name != "Ada Lovelace" || restored.Email != "ada@example.com" {
		t.Fatalf("restored fields = %+v", restored)
	}
	if _, idx := coll.Find("c-1"); idx >= 0 {
		t.Fatal("old id resurrected; replay must create a fresh record")
	}
}

func TestDeleteCandidateUndoAfterExpiryIsNoop(t *testing.T) {
	notifier := &notify.Capture{}
	client := &fakeClient[domain.Candidate]{
		deleteFn: func(context.Context, string) error { return nil },
		createFn: func(context.Context, domain.Candidate) (domain.Candidate, error) {
			t.Error("expired undo must not re-create")
			return domain.Candidate{}, nil
		},
	}
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	broker := undo.NewBroker().WithClock(func() time.Time { return now })
	s := NewService(Clients{Candidates: client}, Options{Notifier: notifier, Undo: broker})
	key := seedCandidates(s, candidateFixture("c-1"))

	if err := s.DeleteCandidate(context.Background(), "ws-1", "c-1"); err != nil {
		t.Fatalf("DeleteCandidate: %v", err)
	}

	now = now.Add(undo.DefaultDeleteTTL + time.Second)
	msg, _ := notifier.Last()
	msg.Action()

	coll, _ := s.candidates.Cache().Read(key)
	if coll.Total != 0 {
		t.Fatalf("total = %d, want 0 (undo expired)", coll.Total)
	}
}

func TestMoveApplicationStageSuccess(t *testing.T) {
	notifier := &notify.Capture{}
	client := &fakeClient[domain.Application]{
		updateFn: func(_ context.Context, id string, patch domain.Patch) (domain.Application, error) {
			app := applicationFixture(id, domain.ApplicationStage(patch["stage"].(string)))
			return app, nil
		},
	}
	s := NewService(Clients{Applications: client}, Options{Notifier: notifier})
	key := seedApplications(s, applicationFixture("a-1", domain.StageApplied))

	moved, err := s.MoveApplicationStage(context.Background(), "ws-1", "a-1", domain.StageScreen)
	if err != nil {
		t.Fatalf("MoveApplicationStage: %v", err)
	}
	if moved.Stage != domain.StageScreen {
		t.Fatalf("stage = %s", moved.Stage)
	}

	coll, _ := s.applications.Cache().Read(key)
	app, _ := coll.Find("a-1")
	if app.Stage != domain.StageScreen {
		t.Fatalf("cached stage = %s, want screen", app.Stage)
	}

	msg, ok := notifier.Last()
	if !ok || msg.Type != notify.TypeSuccess {
		t.Fatalf("notification = %+v, ok=%v", msg, ok)
	}
	if msg.Text != "Moved to Screen" {
		t.Fatalf("text = %q", msg.Text)
	}
	if msg.ActionLabel != "Undo" || msg.Action == nil || msg.Duration != undo.DefaultTransitionTTL {
		t.Fatalf("undo affordance missing: %+v", msg)
	}

	// Undo moves it back.
	msg.Action()
	coll, _ = s.applications.Cache().Read(key)
	app, _ = coll.Find("a-1")
	if app.Stage != domain.StageApplied {
		t.Fatalf("stage after undo = %s, want applied", app.Stage)
	}
}

func TestMoveApplicationStageFailureRollsBack(t *testing.T) {
	notifier := &notify.Capture{}
	client := &fakeClient[domain.Application]{
		updateFn: func(context.Context, string, domain.Patch) (domain.Application, error) {
			return domain.Application{}, &domain.APIError{Message: "Network error"}
		},
	}
	s := NewService(Clients{Applications: client}, Options{Notifier: notifier})
	key := seedApplications(s, applicationFixture("a-1", domain.StageApplied))

	_, err := s.MoveApplicationStage(context.Background(), "ws-1", "a-1", domain.StageScreen)
	if err == nil {
		t.Fatal("expected move error")
	}

	coll, _ := s.applications.Cache().Read(key)
	app, _ := coll.Find("a-1")
	if app.Stage != domain.StageApplied {
		t.Fatalf("stage = %s, want rollback to applied", app.Stage)
	}

	msg, ok := notifier.Last()
	if !ok || msg.Type != notify.TypeError || !strings.Contains(msg.Text, "Network error") {
		t.Fatalf("error notification = %+v, ok=%v", msg, ok)
	}
}

func TestMoveApplicationStageRejectsTerminalTransition(t *testing.T) {
	notifier := &notify.Capture{}
	client := &fakeClient[domain.Application]{
		updateFn: func(context.Context, string, domain.Patch) (domain.Application, error) {
			t.Error("blocked transition must not reach the collaborator")
			return domain.Application{}, nil
		},
	}
	s := NewService(Clients{Applications: client}, Options{Notifier: notifier})
	seedApplications(s, applicationFixture("a-1", domain.StageHired))

	_, err := s.MoveApplicationStage(context.Background(), "ws-1", "a-1", domain.StageScreen)
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("err = %v, want RuleViolationError", err)
	}
	msg, ok := notifier.Last()
	if !ok || msg.Type != notify.TypeError {
		t.Fatalf("validation error not notified: %+v, ok=%v", msg, ok)
	}
}

func TestMoveApplicationStageUnknownApplication(t *testing.T) {
	client := &fakeClient[domain.Application]{
		listFn: func(context.Context, string, cache.Filters) (domain.Collection[domain.Application], error) {
			return domain.Collection[domain.Application]{}, nil
		},
	}
	s := NewService(Clients{Applications: client}, Options{})

	_, err := s.MoveApplicationStage(context.Background(), "ws-1", "a-404", domain.StageScreen)
	var notFound domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUndoReplayFailureIsLoggedNotSurfaced(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	notifier := &notify.Capture{}
	client := &fakeClient[domain.Candidate]{
		deleteFn: func(context.Context, string) error { return nil },
		createFn: func(context.Context, domain.Candidate) (domain.Candidate, error) {
			return domain.Candidate{}, errors.New("recreate rejected")
		},
	}
	s := NewService(Clients{Candidates: client}, Options{Notifier: notifier, Logger: logger})
	seedCandidates(s, candidateFixture("c-1"))

	if err := s.DeleteCandidate(context.Background(), "ws-1", "c-1"); err != nil {
		t.Fatalf("DeleteCandidate: %v", err)
	}
	msg, _ := notifier.Last()
	msg.Action() // must not panic or surface the replay error

	if !strings.Contains(logBuf.String(), "undo replay failed") {
		t.Fatalf("replay failure not logged: %s", logBuf.String())
	}
}

func TestCreateCandidateValidation(t *testing.T) {
	client := &fakeClient[domain.Candidate]{
		createFn: func(context.Context, domain.Candidate) (domain.Candidate, error) {
			t.Error("invalid create must not reach the collaborator")
			return domain.Candidate{}, nil
		},
	}
	s := NewService(Clients{Candidates: client}, Options{})

	_, err := s.CreateCandidate(context.Background(), domain.Candidate{WorkspaceID: "ws-1"})
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("err = %v, want RuleViolationError for missing name/email", err)
	}
}

func TestCreateJobSuccess(t *testing.T) {
	notifier := &notify.Capture{}
	client := &fakeClient[domain.Job]{
		createFn: func(_ context.Context, job domain.Job) (domain.Job, error) {
			return job.WithRecordID("j-1"), nil
		},
	}
	s := NewService(Clients{Jobs: client}, Options{Notifier: notifier})

	job, err := s.CreateJob(context.Background(), domain.Job{WorkspaceID: "ws-1", Title: "Backend Engineer"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.ID != "j-1" {
		t.Fatalf("job = %+v", job)
	}
	msg, ok := notifier.Last()
	if !ok || msg.Text != "Job created" || msg.Type != notify.TypeSuccess {
		t.Fatalf("notification = %+v, ok=%v", msg, ok)
	}
}
