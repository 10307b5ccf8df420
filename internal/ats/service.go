// Package ats wires the resource coordinators, rules engine, undo broker
// and notifier into the recruiting operations the application exposes.
package ats

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"talentcore/internal/cache"
	"talentcore/internal/mutate"
	"talentcore/internal/notify"
	"talentcore/internal/undo"
	"talentcore/pkg/domain"
)

// Clients carries one HTTP collaborator per resource type.
type Clients struct {
	Jobs          mutate.Collaborator[domain.Job]
	Candidates    mutate.Collaborator[domain.Candidate]
	Applications  mutate.Collaborator[domain.Application]
	Interviews    mutate.Collaborator[domain.Interview]
	FlowTemplates mutate.Collaborator[domain.FlowTemplate]
}

// Options configures the shared collaborators of a Service. Zero fields get
// working defaults.
type Options struct {
	Rules    *domain.RulesEngine
	Notifier notify.Notifier
	Metrics  mutate.MetricsRecorder
	Journal  mutate.Sink
	Undo     *undo.Broker
	Logger   *slog.Logger
}

// Service is the recruiting facade over the five resource coordinators.
type Service struct {
	rules    *domain.RulesEngine
	notifier notify.Notifier
	undo     *undo.Broker
	logger   *slog.Logger

	jobs         *mutate.Coordinator[domain.Job]
	candidates   *mutate.Coordinator[domain.Candidate]
	applications *mutate.Coordinator[domain.Application]
	interviews   *mutate.Coordinator[domain.Interview]
	flows        *mutate.Coordinator[domain.FlowTemplate]
}

// NewService constructs the facade and its per-resource caches.
func NewService(clients Clients, opts Options) *Service {
	if opts.Rules == nil {
		opts.Rules = domain.NewDefaultRulesEngine()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = mutate.NoopMetrics{}
	}
	if opts.Undo == nil {
		opts.Undo = undo.NewBroker()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Service{
		rules:    opts.Rules,
		notifier: opts.Notifier,
		undo:     opts.Undo,
		logger:   opts.Logger,
	}
	s.jobs = newCoordinator(clients.Jobs, opts)
	s.candidates = newCoordinator(clients.Candidates, opts)
	s.applications = newCoordinator(clients.Applications, opts)
	s.interviews = newCoordinator(clients.Interviews, opts)
	s.flows = newCoordinator(clients.FlowTemplates, opts)
	return s
}

func newCoordinator[R domain.Record[R]](client mutate.Collaborator[R], opts Options) *mutate.Coordinator[R] {
	coordOpts := []mutate.Option[R]{
		mutate.WithNotifier[R](opts.Notifier),
		mutate.WithMetrics[R](opts.Metrics),
		mutate.WithLogger[R](opts.Logger),
	}
	if opts.Journal != nil {
		coordOpts = append(coordOpts, mutate.WithJournal[R](opts.Journal))
	}
	return mutate.NewCoordinator(cache.New[R](), client, coordOpts...)
}

// Undo exposes the undo broker so callers can invoke offered tokens.
func (s *Service) Undo() *undo.Broker { return s.undo }

// baseKey is the unfiltered collection key mutations speculate against.
func baseKey[R domain.Record[R]](scopeID string) cache.Key {
	var zero R
	return cache.KeyFor(zero.Entity(), scopeID, cache.Filters{})
}

// validate runs the rules engine over one prospective change; blocking
// violations reject the mutation before any network call.
func (s *Service) validate(ctx context.Context, change domain.Change) error {
	result, err := s.rules.Evaluate(ctx, []domain.Change{change})
	if err != nil {
		return err
	}
	if result.HasBlocking() {
		return domain.RuleViolationError{Result: result}
	}
	return nil
}

func validateCreate[R domain.Record[R]](ctx context.Context, s *Service, record R) error {
	change, err := domain.NewChange(domain.ActionCreate, nil, &record)
	if err != nil {
		return err
	}
	return s.validate(ctx, change)
}

// Jobs.

func (s *Service) CreateJob(ctx context.Context, job domain.Job) (domain.Job, error) {
	if err := validateCreate(ctx, s, job); err != nil {
		return domain.Job{}, err
	}
	return s.jobs.Create(ctx, baseKey[domain.Job](job.Scope()), job,
		mutate.MutationOptions{SuccessMessage: "Job created"})
}

func (s *Service) UpdateJob(ctx context.Context, scopeID, id string, patch domain.Patch, apply func(domain.Job) domain.Job) (domain.Job, error) {
	return s.jobs.Update(ctx, baseKey[domain.Job](scopeID), id, patch, apply,
		mutate.MutationOptions{SuccessMessage: "Job updated"})
}

func (s *Service) DeleteJob(ctx context.Context, scopeID, id string) error {
	_, err := s.jobs.Delete(ctx, baseKey[domain.Job](scopeID), id,
		mutate.MutationOptions{SuccessMessage: "Job deleted"})
	return err
}

func (s *Service) ListJobs(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[domain.Job], error) {
	return s.jobs.List(ctx, scopeID, filters)
}

// Candidates.

func (s *Service) CreateCandidate(ctx context.Context, candidate domain.Candidate) (domain.Candidate, error) {
	if err := validateCreate(ctx, s, candidate); err != nil {
		return domain.Candidate{}, err
	}
	return s.candidates.Create(ctx, baseKey[domain.Candidate](candidate.Scope()), candidate,
		mutate.MutationOptions{SuccessMessage: "Candidate created"})
}

func (s *Service) UpdateCandidate(ctx context.Context, scopeID, id string, patch domain.Patch, apply func(domain.Candidate) domain.Candidate) (domain.Candidate, error) {
	return s.candidates.Update(ctx, baseKey[domain.Candidate](scopeID), id, patch, apply,
		mutate.MutationOptions{SuccessMessage: "Candidate updated"})
}

// DeleteCandidate removes the candidate and offers an undo window that
// re-creates it with the original fields (the server assigns a fresh id).
func (s *Service) DeleteCandidate(ctx context.Context, scopeID, id string) error {
	return deleteWithUndo(ctx, s, s.candidates, scopeID, id, "Candidate deleted")
}

func (s *Service) ListCandidates(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[domain.Candidate], error) {
	return s.candidates.List(ctx, scopeID, filters)
}

// Applications.

func (s *Service) CreateApplication(ctx context.Context, app domain.Application) (domain.Application, error) {
	if err := validateCreate(ctx, s, app); err != nil {
		return domain.Application{}, err
	}
	return s.applications.Create(ctx, baseKey[domain.Application](app.Scope()), app,
		mutate.MutationOptions{SuccessMessage: "Application created"})
}

// DeleteApplication removes the application and offers an undo window that
// re-creates it with the original fields.
func (s *Service) DeleteApplication(ctx context.Context, scopeID, id string) error {
	return deleteWithUndo(ctx, s, s.applications, scopeID, id, "Application deleted")
}

func (s *Service) ListApplications(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[domain.Application], error) {
	return s.applications.List(ctx, scopeID, filters)
}

// MoveApplicationStage validates the transition, moves the application, and
// offers a short undo that moves it back.
func (s *Service) MoveApplicationStage(ctx context.Context, scopeID, id string, stage domain.ApplicationStage) (domain.Application, error) {
	key := baseKey[domain.Application](scopeID)
	current, err := s.findApplication(ctx, key, scopeID, id)
	if err != nil {
		return domain.Application{}, err
	}
	prev := current.Stage

	moved := current.Clone()
	moved.Stage = stage
	change, err := domain.NewChange(domain.ActionUpdate, &current, &moved)
	if err != nil {
		return domain.Application{}, err
	}
	if err := s.validate(ctx, change); err != nil {
		s.notifier.Show(notify.Message{Text: err.Error(), Type: notify.TypeError})
		return domain.Application{}, err
	}

	confirmed, err := s.applications.Update(ctx, key, id,
		domain.Patch{"stage": string(stage)},
		func(a domain.Application) domain.Application { a.Stage = stage; return a },
		mutate.MutationOptions{}) // facade owns the success notification
	if err != nil {
		return domain.Application{}, err
	}

	token := s.undo.Offer(undo.DefaultTransitionTTL, func(ctx context.Context) error {
		_, err := s.applications.Update(ctx, key, id,
			domain.Patch{"stage": string(prev)},
			func(a domain.Application) domain.Application { a.Stage = prev; return a },
			mutate.MutationOptions{})
		return err
	}, nil)
	s.notifySuccessWithUndo("Moved to "+stageLabel(stage), token, undo.DefaultTransitionTTL)
	return confirmed, nil
}

// Interviews.

func (s *Service) CreateInterview(ctx context.Context, interview domain.Interview) (domain.Interview, error) {
	if err := validateCreate(ctx, s, interview); err != nil {
		return domain.Interview{}, err
	}
	return s.interviews.Create(ctx, baseKey[domain.Interview](interview.Scope()), interview,
		mutate.MutationOptions{SuccessMessage: "Interview scheduled"})
}

func (s *Service) UpdateInterview(ctx context.Context, scopeID, id string, patch domain.Patch, apply func(domain.Interview) domain.Interview) (domain.Interview, error) {
	return s.interviews.Update(ctx, baseKey[domain.Interview](scopeID), id, patch, apply,
		mutate.MutationOptions{SuccessMessage: "Interview updated"})
}

func (s *Service) DeleteInterview(ctx context.Context, scopeID, id string) error {
	_, err := s.interviews.Delete(ctx, baseKey[domain.Interview](scopeID), id,
		mutate.MutationOptions{SuccessMessage: "Interview cancelled"})
	return err
}

func (s *Service) ListInterviews(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[domain.Interview], error) {
	return s.interviews.List(ctx, scopeID, filters)
}

// Flow templates.

func (s *Service) CreateFlowTemplate(ctx context.Context, flow domain.FlowTemplate) (domain.FlowTemplate, error) {
	if err := validateCreate(ctx, s, flow); err != nil {
		return domain.FlowTemplate{}, err
	}
	return s.flows.Create(ctx, baseKey[domain.FlowTemplate](flow.Scope()), flow,
		mutate.MutationOptions{SuccessMessage: "Flow template created"})
}

func (s *Service) UpdateFlowTemplate(ctx context.Context, scopeID, id string, patch domain.Patch, apply func(domain.FlowTemplate) domain.FlowTemplate) (domain.FlowTemplate, error) {
	return s.flows.Update(ctx, baseKey[domain.FlowTemplate](scopeID), id, patch, apply,
		mutate.MutationOptions{SuccessMessage: "Flow template updated"})
}

func (s *Service) DeleteFlowTemplate(ctx context.Context, scopeID, id string) error {
	_, err := s.flows.Delete(ctx, baseKey[domain.FlowTemplate](scopeID), id,
		mutate.MutationOptions{SuccessMessage: "Flow template deleted"})
	return err
}

func (s *Service) ListFlowTemplates(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[domain.FlowTemplate], error) {
	return s.flows.List(ctx, scopeID, filters)
}

// deleteWithUndo runs the delete through the coordinator, then offers a
// compensating create for the captured record. The coordinator stays silent
// on success so the notification here can carry the undo action.
func deleteWithUndo[R domain.Record[R]](ctx context.Context, s *Service, coord *mutate.Coordinator[R], scopeID, id, message string) error {
	key := baseKey[R](scopeID)
	deleted, err := coord.Delete(ctx, key, id, mutate.MutationOptions{})
	if err != nil {
		return err
	}
	// Strip the old id; the server assigns a fresh one on replay.
	replayRecord := deleted.Clone().WithRecordID("")
	token := s.undo.Offer(undo.DefaultDeleteTTL, func(ctx context.Context) error {
		_, err := coord.Create(ctx, key, replayRecord, mutate.MutationOptions{})
		return err
	}, nil)
	s.notifySuccessWithUndo(message, token, undo.DefaultDeleteTTL)
	return nil
}

// findApplication reads the application from the cache, refreshing through
// the collaborator when the base collection is absent.
func (s *Service) findApplication(ctx context.Context, key cache.Key, scopeID, id string) (domain.Application, error) {
	if coll, ok := s.applications.Cache().Read(key); ok {
		if app, idx := coll.Find(id); idx >= 0 {
			return app, nil
		}
	}
	coll, err := s.applications.List(ctx, scopeID, cache.Filters{})
	if err != nil {
		return domain.Application{}, err
	}
	app, idx := coll.Find(id)
	if idx < 0 {
		return domain.Application{}, domain.ErrNotFound{Entity: domain.EntityApplication, ID: id}
	}
	return app, nil
}

func (s *Service) notifySuccessWithUndo(message string, token undo.Token, ttl time.Duration) {
	s.notifier.Show(notify.Message{
		Text:        message,
		Type:        notify.TypeSuccess,
		Duration:    ttl,
		ActionLabel: "Undo",
		Action: func() {
			replayed, err := s.undo.Invoke(context.Background(), token)
			if err != nil {
				// Best-effort recovery: surface in logs only.
				s.logger.Error("undo replay failed", "error", err)
				return
			}
			if !replayed {
				s.logger.Debug("undo token expired or already used")
			}
		},
	})
}

// stageLabel renders a pipeline stage for user-facing messages.
func stageLabel(stage domain.ApplicationStage) string {
	str := string(stage)
	if str == "" {
		return str
	}
	return strings.ToUpper(str[:1]) + str[1:]
}
