package domain

import (
	"context"
	"fmt"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether a mutation may proceed.
const (
	// SeverityBlock rejects the mutation before any network call.
	SeverityBlock Severity = "block"
	// SeverityWarn allows the mutation but surfaces a warning.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation describes a single rule finding.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from one evaluation pass.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends the other result's violations.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any violation carries block severity.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations reject a mutation.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Violations))
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, v.Message)
		}
	}
	return fmt.Sprintf("rule violations: %s", strings.Join(msgs, "; "))
}

// Rule defines a validation executed before a mutation is dispatched.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine builds an engine with the built-in policy set and the
// default hiring pipeline.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewStageTransitionRule(DefaultStages()))
	engine.Register(NewRequiredFieldsRule())
	return engine
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// stateMachine describes the valid and terminal states for one entity type.
type stateMachine struct {
	label     string
	terminal  map[string]struct{}
	valid     map[string]struct{}
	extractor func(change Change) (id, before, after string, ok bool)
}

// NewStageTransitionRule blocks illegal state transitions on stateful
// entities: entering a state outside the configured pipeline, or leaving a
// terminal state.
func NewStageTransitionRule(stages []ApplicationStage) Rule {
	validStages := make([]string, len(stages))
	for i, s := range stages {
		validStages[i] = string(s)
	}
	machines := map[EntityType]stateMachine{
		EntityApplication: {
			label:    "application",
			terminal: toSet(string(StageHired), string(StageRejected)),
			valid:    toSet(validStages...),
			extractor: func(change Change) (string, string, string, bool) {
				after, ok := DecodeChange[Application](change.After)
				if !ok {
					return "", "", "", false
				}
				before, _ := DecodeChange[Application](change.Before)
				return after.ID, string(before.Stage), string(after.Stage), true
			},
		},
		EntityInterview: {
			label:    "interview",
			terminal: toSet(string(InterviewCompleted), string(InterviewCancelled)),
			valid:    toSet(string(InterviewScheduled), string(InterviewCompleted), string(InterviewCancelled)),
			extractor: func(change Change) (string, string, string, bool) {
				after, ok := DecodeChange[Interview](change.After)
				if !ok {
					return "", "", "", false
				}
				before, _ := DecodeChange[Interview](change.Before)
				return after.ID, string(before.Status), string(after.Status), true
			},
		},
		EntityJob: {
			label:    "job",
			terminal: toSet(string(JobStatusArchived)),
			valid:    toSet(string(JobStatusDraft), string(JobStatusOpen), string(JobStatusClosed), string(JobStatusArchived)),
			extractor: func(change Change) (string, string, string, bool) {
				after, ok := DecodeChange[Job](change.After)
				if !ok {
					return "", "", "", false
				}
				before, _ := DecodeChange[Job](change.Before)
				return after.ID, string(before.Status), string(after.Status), true
			},
		},
	}
	return stageTransitionRule{machines: machines}
}

type stageTransitionRule struct {
	machines map[EntityType]stateMachine
}

func (stageTransitionRule) Name() string { return "stage_transition" }

func (r stageTransitionRule) Evaluate(_ context.Context, changes []Change) (Result, error) {
	res := Result{}
	for _, change := range changes {
		machine, ok := r.machines[change.Entity]
		if !ok {
			continue
		}
		id, beforeState, afterState, ok := machine.extractor(change)
		if !ok || afterState == "" {
			continue
		}
		if _, valid := machine.valid[afterState]; !valid {
			res.Violations = append(res.Violations, Violation{
				Rule:     "stage_transition",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("%s %s is set to invalid stage %s", machine.label, id, afterState),
				Entity:   change.Entity,
				EntityID: id,
			})
			continue
		}
		if beforeState == "" || beforeState == afterState {
			continue
		}
		if _, terminal := machine.terminal[beforeState]; terminal {
			res.Violations = append(res.Violations, Violation{
				Rule:     "stage_transition",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("cannot move %s %s from terminal stage %s to %s", machine.label, id, beforeState, afterState),
				Entity:   change.Entity,
				EntityID: id,
			})
		}
	}
	return res, nil
}

// NewRequiredFieldsRule blocks creates that miss mandatory fields.
func NewRequiredFieldsRule() Rule {
	return requiredFieldsRule{}
}

type requiredFieldsRule struct{}

func (requiredFieldsRule) Name() string { return "required_fields" }

func (requiredFieldsRule) Evaluate(_ context.Context, changes []Change) (Result, error) {
	res := Result{}
	for _, change := range changes {
		if change.Action != ActionCreate {
			continue
		}
		var missing []string
		switch change.Entity {
		case EntityJob:
			job, ok := DecodeChange[Job](change.After)
			if !ok {
				continue
			}
			if strings.TrimSpace(job.Title) == "" {
				missing = append(missing, "title")
			}
			if strings.TrimSpace(job.WorkspaceID) == "" {
				missing = append(missing, "workspace_id")
			}
		case EntityCandidate:
			cand, ok := DecodeChange[Candidate](change.After)
			if !ok {
				continue
			}
			if strings.TrimSpace(cand.Name) == "" {
				missing = append(missing, "name")
			}
			if strings.TrimSpace(cand.Email) == "" {
				missing = append(missing, "email")
			}
		case EntityApplication:
			app, ok := DecodeChange[Application](change.After)
			if !ok {
				continue
			}
			if app.JobID == "" {
				missing = append(missing, "job_id")
			}
			if app.CandidateID == "" {
				missing = append(missing, "candidate_id")
			}
		}
		if len(missing) > 0 {
			res.Violations = append(res.Violations, Violation{
				Rule:     "required_fields",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("%s create missing required fields: %s", change.Entity, strings.Join(missing, ", ")),
				Entity:   change.Entity,
			})
		}
	}
	return res, nil
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
