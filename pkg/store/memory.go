package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chicogong/pattern-planner/pkg/schemas"
)

// MemoryStore keeps jobs in a map guarded by an RWMutex
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// CreateJob stores a copy of job
func (m *MemoryStore) CreateJob(ctx context.Context, job *Job) error {
	if job.JobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.JobID]; exists {
		return ErrJobExists
	}
	m.jobs[job.JobID] = copyJob(job)
	return nil
}

// GetJob returns a copy of the stored job
func (m *MemoryStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, ErrInvalidJobID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	return copyJob(job), nil
}

// UpdateJob replaces an existing job and bumps its update time
func (m *MemoryStore) UpdateJob(ctx context.Context, job *Job) error {
	if job.JobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.JobID]; !exists {
		return ErrJobNotFound
	}
	job.Updated = m.now()
	m.jobs[job.JobID] = copyJob(job)
	return nil
}

// DeleteJob deletes a job by ID
func (m *MemoryStore) DeleteJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[jobID]; !exists {
		return ErrJobNotFound
	}
	delete(m.jobs, jobID)
	return nil
}

// ListJobs filters, sorts and pages the stored jobs
func (m *MemoryStore) ListJobs(ctx context.Context, filter *ListFilter) ([]*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := []*Job{}
	for _, job := range m.jobs {
		if matchesFilter(job, filter) {
			jobs = append(jobs, copyJob(job))
		}
	}

	sortJobs(jobs, filter)
	return paginateJobs(jobs, filter), nil
}

// UpdateJobStatus moves a job to status
func (m *MemoryStore) UpdateJobStatus(ctx context.Context, jobID string, status schemas.JobState, progress *schemas.Progress) error {
	return m.mutate(jobID, func(job *Job, now time.Time) {
		applyStatus(job, status, progress, now)
	})
}

// UpdateJobError records an error for a job
func (m *MemoryStore) UpdateJobError(ctx context.Context, jobID string, info *schemas.ErrorInfo) error {
	return m.mutate(jobID, func(job *Job, now time.Time) {
		job.Error = copyError(info)
		job.Updated = now
	})
}

// UpdateJobResult records the compile result and exported artifacts
func (m *MemoryStore) UpdateJobResult(ctx context.Context, jobID string, result *schemas.CompileResult, artifacts []schemas.Artifact) error {
	return m.mutate(jobID, func(job *Job, now time.Time) {
		job.Result = result
		job.Artifacts = slices.Clone(artifacts)
		job.Updated = now
	})
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) mutate(jobID string, fn func(job *Job, now time.Time)) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	fn(job, m.now())
	return nil
}

// copyJob copies the mutable parts of job. Spec and Result are shared.
func copyJob(job *Job) *Job {
	if job == nil {
		return nil
	}

	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	if job.Progress != nil {
		p := *job.Progress
		c.Progress = &p
	}
	c.Error = copyError(job.Error)
	c.Artifacts = slices.Clone(job.Artifacts)
	return &c
}

func copyError(info *schemas.ErrorInfo) *schemas.ErrorInfo {
	if info == nil {
		return nil
	}
	c := *info
	c.Details = maps.Clone(info.Details)
	return &c
}

func matchesFilter(job *Job, filter *ListFilter) bool {
	if filter == nil {
		return true
	}
	if len(filter.Status) > 0 && !slices.Contains(filter.Status, job.Status) {
		return false
	}
	if filter.UserID != "" && job.UserID() != filter.UserID {
		return false
	}
	if filter.Name != "" && job.Name() != filter.Name {
		return false
	}
	if filter.CreatedAfter != nil && job.Created.Before(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && job.Created.After(*filter.CreatedBefore) {
		return false
	}
	return true
}

// sortJobs orders by the filter sort key, newest first by default. Ties
// fall back to the job ID so listings are stable.
func sortJobs(jobs []*Job, filter *ListFilter) {
	by, ascending := SortByCreated, false
	if filter != nil {
		if filter.SortBy != "" {
			by = filter.SortBy
		}
		ascending = filter.SortOrder == "asc"
	}

	compare := func(a, b *Job) int {
		switch by {
		case SortByUpdated:
			return a.Updated.Compare(b.Updated)
		case SortByStatus:
			return strings.Compare(string(a.Status), string(b.Status))
		default:
			return a.Created.Compare(b.Created)
		}
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		c := compare(jobs[i], jobs[j])
		if c == 0 {
			return jobs[i].JobID < jobs[j].JobID
		}
		if ascending {
			return c < 0
		}
		return c > 0
	})
}

func paginateJobs(jobs []*Job, filter *ListFilter) []*Job {
	if filter == nil {
		return jobs
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return []*Job{}
		}
		jobs = jobs[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(jobs) {
		jobs = jobs[:filter.Limit]
	}
	return jobs
}
