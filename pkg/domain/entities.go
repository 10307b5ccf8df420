// Package domain defines the recruiting resource records, value types, and
// rule evaluation primitives shared by talentcore's cache and mutation layers.
package domain

import "time"

// EntityType identifies the type of resource held in a collection cache entry.
type EntityType string

// Supported entity type identifiers used in cache keys and change records.
const (
	// EntityJob identifies a job posting record.
	EntityJob EntityType = "job"
	// EntityCandidate identifies a candidate record.
	EntityCandidate EntityType = "candidate"
	// EntityApplication identifies an application record linking a candidate to a job.
	EntityApplication EntityType = "application"
	// EntityInterview identifies a scheduled interview record.
	EntityInterview EntityType = "interview"
	// EntityFlowTemplate identifies a reusable hiring-flow template record.
	EntityFlowTemplate EntityType = "flow_template"
)

// ApplicationStage represents the canonical hiring pipeline stages.
type ApplicationStage string

// Canonical application stages. Hired and rejected are terminal.
const (
	StageApplied   ApplicationStage = "applied"
	StageScreen    ApplicationStage = "screen"
	StageInterview ApplicationStage = "interview"
	StageOffer     ApplicationStage = "offer"
	StageHired     ApplicationStage = "hired"
	StageRejected  ApplicationStage = "rejected"
)

// JobStatus enumerates job posting workflow states.
type JobStatus string

// Canonical job statuses used for listing filters and validation.
const (
	JobStatusDraft    JobStatus = "draft"
	JobStatusOpen     JobStatus = "open"
	JobStatusClosed   JobStatus = "closed"
	JobStatusArchived JobStatus = "archived"
)

// InterviewStatus enumerates interview lifecycle states.
type InterviewStatus string

// Canonical interview statuses. Completed and cancelled are terminal.
const (
	InterviewScheduled InterviewStatus = "scheduled"
	InterviewCompleted InterviewStatus = "completed"
	InterviewCancelled InterviewStatus = "cancelled"
)

// Base contains common fields for all resource records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Job represents an open position within a workspace.
type Job struct {
	Base
	WorkspaceID string    `json:"workspace_id"`
	Title       string    `json:"title"`
	Department  string    `json:"department"`
	Location    string    `json:"location"`
	Status      JobStatus `json:"status"`
	Openings    int       `json:"openings"`
}

// RecordID returns the record's stable identifier.
func (j Job) RecordID() string { return j.ID }

// WithRecordID returns a copy of the job carrying the given identifier.
func (j Job) WithRecordID(id string) Job { j.ID = id; return j }

// Clone returns a deep copy of the job.
func (j Job) Clone() Job { return j }

// Entity returns the job entity type identifier.
func (j Job) Entity() EntityType { return EntityJob }

// Scope returns the workspace the job belongs to.
func (j Job) Scope() string { return j.WorkspaceID }

// Candidate represents a person tracked in the recruiting pipeline.
type Candidate struct {
	Base
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone,omitempty"`
	Source      string   `json:"source,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// RecordID returns the record's stable identifier.
func (c Candidate) RecordID() string { return c.ID }

// WithRecordID returns a copy of the candidate carrying the given identifier.
func (c Candidate) WithRecordID(id string) Candidate { c.ID = id; return c }

// Clone returns a deep copy of the candidate.
func (c Candidate) Clone() Candidate {
	cp := c
	cp.Tags = append([]string(nil), c.Tags...)
	return cp
}

// Entity returns the candidate entity type identifier.
func (c Candidate) Entity() EntityType { return EntityCandidate }

// Scope returns the workspace the candidate belongs to.
func (c Candidate) Scope() string { return c.WorkspaceID }

// Application links a candidate to a job at a pipeline stage.
type Application struct {
	Base
	WorkspaceID string           `json:"workspace_id"`
	JobID       string           `json:"job_id"`
	CandidateID string           `json:"candidate_id"`
	Stage       ApplicationStage `json:"stage"`
	Notes       string           `json:"notes,omitempty"`
}

// RecordID returns the record's stable identifier.
func (a Application) RecordID() string { return a.ID }

// WithRecordID returns a copy of the application carrying the given identifier.
func (a Application) WithRecordID(id string) Application { a.ID = id; return a }

// Clone returns a deep copy of the application.
func (a Application) Clone() Application { return a }

// Entity returns the application entity type identifier.
func (a Application) Entity() EntityType { return EntityApplication }

// Scope returns the workspace the application belongs to.
func (a Application) Scope() string { return a.WorkspaceID }

// Interview represents a scheduled conversation for an application.
type Interview struct {
	Base
	WorkspaceID   string          `json:"workspace_id"`
	ApplicationID string          `json:"application_id"`
	Status        InterviewStatus `json:"status"`
	ScheduledAt   time.Time       `json:"scheduled_at"`
	Interviewers  []string        `json:"interviewers,omitempty"`
}

// RecordID returns the record's stable identifier.
func (i Interview) RecordID() string { return i.ID }

// WithRecordID returns a copy of the interview carrying the given identifier.
func (i Interview) WithRecordID(id string) Interview { i.ID = id; return i }

// Clone returns a deep copy of the interview.
func (i Interview) Clone() Interview {
	cp := i
	cp.Interviewers = append([]string(nil), i.Interviewers...)
	return cp
}

// Entity returns the interview entity type identifier.
func (i Interview) Entity() EntityType { return EntityInterview }

// Scope returns the workspace the interview belongs to.
func (i Interview) Scope() string { return i.WorkspaceID }

// FlowTemplate defines the ordered stages a workspace's applications move through.
type FlowTemplate struct {
	Base
	WorkspaceID string             `json:"workspace_id"`
	Name        string             `json:"name"`
	Stages      []ApplicationStage `json:"stages"`
	Default     bool               `json:"default"`
}

// RecordID returns the record's stable identifier.
func (f FlowTemplate) RecordID() string { return f.ID }

// WithRecordID returns a copy of the template carrying the given identifier.
func (f FlowTemplate) WithRecordID(id string) FlowTemplate { f.ID = id; return f }

// Clone returns a deep copy of the template.
func (f FlowTemplate) Clone() FlowTemplate {
	cp := f
	cp.Stages = append([]ApplicationStage(nil), f.Stages...)
	return cp
}

// Entity returns the flow template entity type identifier.
func (f FlowTemplate) Entity() EntityType { return EntityFlowTemplate }

// Scope returns the workspace the template belongs to.
func (f FlowTemplate) Scope() string { return f.WorkspaceID }

// DefaultStages is the pipeline used when a workspace has no flow template.
func DefaultStages() []ApplicationStage {
	return []ApplicationStage{StageApplied, StageScreen, StageInterview, StageOffer, StageHired, StageRejected}
}

// TerminalStages returns the stages an application cannot leave.
func TerminalStages() []ApplicationStage {
	return []ApplicationStage{StageHired, StageRejected}
}
