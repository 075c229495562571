// Package store persists compile jobs
package store

import (
	"context"
	"errors"
	"time"

	"github.com/chicogong/pattern-planner/pkg/schemas"
)

var (
	// ErrJobNotFound is returned when a job does not exist
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when attempting to create a job that already exists
	ErrJobExists = errors.New("job already exists")

	// ErrInvalidJobID is returned for invalid job IDs
	ErrInvalidJobID = errors.New("invalid job ID")
)

// Store is the interface for job persistence
type Store interface {
	// CreateJob stores a new job
	CreateJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// UpdateJob replaces an existing job
	UpdateJob(ctx context.Context, job *Job) error

	// DeleteJob deletes a job by ID
	DeleteJob(ctx context.Context, jobID string) error

	// ListJobs lists jobs matching filter; a nil filter matches every job
	ListJobs(ctx context.Context, filter *ListFilter) ([]*Job, error)

	// UpdateJobStatus moves a job to status and records its progress
	UpdateJobStatus(ctx context.Context, jobID string, status schemas.JobState, progress *schemas.Progress) error

	// UpdateJobError records an error for a job
	UpdateJobError(ctx context.Context, jobID string, err *schemas.ErrorInfo) error

	// UpdateJobResult records the compile result and exported artifacts
	UpdateJobResult(ctx context.Context, jobID string, result *schemas.CompileResult, artifacts []schemas.Artifact) error

	// Close releases resources
	Close() error
}

// Job is a complete compile job record. Spec and Result are treated as
// immutable once stored.
type Job struct {
	JobID   string    `json:"job_id"`
	Created time.Time `json:"created_at"`
	Updated time.Time `json:"updated_at"`

	Spec *schemas.PatternSpec `json:"spec"`

	Status      schemas.JobState   `json:"status"`
	Progress    *schemas.Progress  `json:"progress,omitempty"`
	Error       *schemas.ErrorInfo `json:"error,omitempty"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`

	Result    *schemas.CompileResult `json:"result,omitempty"`
	Artifacts []schemas.Artifact     `json:"artifacts,omitempty"`
}

// Sort keys accepted by ListFilter.SortBy
const (
	SortByCreated = "created"
	SortByUpdated = "updated"
	SortByStatus  = "status"
)

// ListFilter defines filtering criteria for listing jobs
type ListFilter struct {
	Status []schemas.JobState `json:"status,omitempty"`
	UserID string             `json:"user_id,omitempty"`
	Name   string             `json:"name,omitempty"`

	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`

	Limit  int `json:"limit,omitempty"`  // 0 = no limit
	Offset int `json:"offset,omitempty"`

	SortBy    string `json:"sort_by,omitempty"`    // created (default), updated or status
	SortOrder string `json:"sort_order,omitempty"` // asc or desc (default)
}

// Name returns the pattern name from the spec
func (j *Job) Name() string {
	if j.Spec == nil {
		return ""
	}
	return j.Spec.Name
}

// UserID returns the submitting user from the spec
func (j *Job) UserID() string {
	if j.Spec == nil {
		return ""
	}
	return j.Spec.UserID
}

// ToJobStatus converts a Job to its external view. The result is included
// only when withResult is set.
func (j *Job) ToJobStatus(withResult bool) *schemas.JobStatus {
	status := &schemas.JobStatus{
		JobID:       j.JobID,
		Name:        j.Name(),
		Status:      j.Status,
		Progress:    j.Progress,
		Error:       j.Error,
		CreatedAt:   j.Created,
		UpdatedAt:   j.Updated,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Artifacts:   j.Artifacts,
	}
	if withResult {
		status.Result = j.Result
	}
	return status
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return IsTerminalState(j.Status)
}

// IsTerminalState reports whether no further transition follows s
func IsTerminalState(s schemas.JobState) bool {
	return s == schemas.JobStateCompleted ||
		s == schemas.JobStateFailed ||
		s == schemas.JobStateCancelled
}

// applyStatus sets status and progress and stamps the start and
// completion times on the first matching transition
func applyStatus(job *Job, status schemas.JobState, progress *schemas.Progress, now time.Time) {
	job.Status = status
	job.Updated = now
	if progress != nil {
		p := *progress
		job.Progress = &p
	}
	if status != schemas.JobStatePending && !IsTerminalState(status) && job.StartedAt == nil {
		t := now
		job.StartedAt = &t
	}
	if IsTerminalState(status) && job.CompletedAt == nil {
		t := now
		job.CompletedAt = &t
	}
}
