package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/chicogong/pattern-planner/pkg/schemas"
)

const terminalCacheSize = 1024

const schemaSQL = `
CREATE TABLE IF NOT EXISTS compile_jobs (
  job_id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  user_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
  started_at TIMESTAMP WITH TIME ZONE,
  completed_at TIMESTAMP WITH TIME ZONE,
  spec JSONB,
  progress JSONB,
  error JSONB,
  result JSONB,
  artifacts JSONB
);
CREATE INDEX IF NOT EXISTS idx_compile_jobs_status ON compile_jobs (status);
CREATE INDEX IF NOT EXISTS idx_compile_jobs_user_id ON compile_jobs (user_id);
CREATE INDEX IF NOT EXISTS idx_compile_jobs_created_at ON compile_jobs (created_at);
`

const jobColumns = `job_id, status, created_at, updated_at, started_at, completed_at,
  spec, progress, error, result, artifacts`

// PostgresStore keeps jobs in a compile_jobs table. Jobs in a terminal
// state are also cached, since they no longer change.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time

	schemaOnce sync.Once
	schemaErr  error

	terminal *lru.Cache[string, *Job]
}

// NewPostgresStore connects to dsn and verifies the connection
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s, err := NewPostgresStoreWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithDB wraps an open database handle
func NewPostgresStoreWithDB(db *sql.DB) (*PostgresStore, error) {
	cache, err := lru.New[string, *Job](terminalCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create job cache: %w", err)
	}
	return &PostgresStore{db: db, now: time.Now, terminal: cache}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, schemaSQL)
	})
	if s.schemaErr != nil {
		return fmt.Errorf("ensure schema: %w", s.schemaErr)
	}
	return nil
}

// jobRow holds the encoded JSON columns of a job
type jobRow struct {
	spec, progress, jobErr, result, artifacts []byte
}

func encodeJob(job *Job) (jobRow, error) {
	var row jobRow
	var err error
	if row.spec, err = encodeJSON(job.Spec); err != nil {
		return row, fmt.Errorf("encode spec: %w", err)
	}
	if row.progress, err = encodeJSON(job.Progress); err != nil {
		return row, fmt.Errorf("encode progress: %w", err)
	}
	if row.jobErr, err = encodeJSON(job.Error); err != nil {
		return row, fmt.Errorf("encode error: %w", err)
	}
	if row.result, err = encodeJSON(job.Result); err != nil {
		return row, fmt.Errorf("encode result: %w", err)
	}
	if len(job.Artifacts) > 0 {
		if row.artifacts, err = json.Marshal(job.Artifacts); err != nil {
			return row, fmt.Errorf("encode artifacts: %w", err)
		}
	}
	return row, nil
}

// encodeJSON maps nil values to SQL NULL
func encodeJSON[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var status string
	var started, completed sql.NullTime
	var enc jobRow

	err := row.Scan(&job.JobID, &status, &job.Created, &job.Updated, &started, &completed,
		&enc.spec, &enc.progress, &enc.jobErr, &enc.result, &enc.artifacts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = schemas.JobState(status)
	if started.Valid {
		job.StartedAt = &started.Time
	}
	if completed.Valid {
		job.CompletedAt = &completed.Time
	}

	decode := []struct {
		name string
		data []byte
		into any
	}{
		{"spec", enc.spec, &job.Spec},
		{"progress", enc.progress, &job.Progress},
		{"error", enc.jobErr, &job.Error},
		{"result", enc.result, &job.Result},
		{"artifacts", enc.artifacts, &job.Artifacts},
	}
	for _, d := range decode {
		if len(d.data) == 0 {
			continue
		}
		if err := json.Unmarshal(d.data, d.into); err != nil {
			return nil, fmt.Errorf("decode %s of job %s: %w", d.name, job.JobID, err)
		}
	}
	return &job, nil
}

// CreateJob inserts job, failing with ErrJobExists on a duplicate ID
func (s *PostgresStore) CreateJob(ctx context.Context, job *Job) error {
	if job.JobID == "" {
		return ErrInvalidJobID
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	enc, err := encodeJob(job)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO compile_jobs (
  job_id, name, user_id, status, created_at, updated_at, started_at, completed_at,
  spec, progress, error, result, artifacts
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (job_id) DO NOTHING`,
		job.JobID, job.Name(), job.UserID(), string(job.Status), job.Created, job.Updated,
		job.StartedAt, job.CompletedAt,
		enc.spec, enc.progress, enc.jobErr, enc.result, enc.artifacts)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobExists
	}
	return nil
}

// GetJob loads a job by ID
func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, ErrInvalidJobID
	}
	if cached, ok := s.terminal.Get(jobID); ok {
		return copyJob(cached), nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	job, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM compile_jobs WHERE job_id = $1`, jobID))
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		s.terminal.Add(jobID, copyJob(job))
	}
	return job, nil
}

// UpdateJob replaces every column of an existing job
func (s *PostgresStore) UpdateJob(ctx context.Context, job *Job) error {
	if job.JobID == "" {
		return ErrInvalidJobID
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	job.Updated = s.now()
	return s.write(ctx, job)
}

// write stores every column of job and drops its cached copy
func (s *PostgresStore) write(ctx context.Context, job *Job) error {
	enc, err := encodeJob(job)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE compile_jobs
SET name=$2, user_id=$3, status=$4, updated_at=$5, started_at=$6, completed_at=$7,
  spec=$8, progress=$9, error=$10, result=$11, artifacts=$12
WHERE job_id=$1`,
		job.JobID, job.Name(), job.UserID(), string(job.Status), job.Updated,
		job.StartedAt, job.CompletedAt,
		enc.spec, enc.progress, enc.jobErr, enc.result, enc.artifacts)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobNotFound
	}

	s.terminal.Remove(job.JobID)
	return nil
}

// DeleteJob deletes a job by ID
func (s *PostgresStore) DeleteJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrInvalidJobID
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM compile_jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	s.terminal.Remove(jobID)
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ListJobs runs the filter as a query
func (s *PostgresStore) ListJobs(ctx context.Context, filter *ListFilter) ([]*Job, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	query, args := buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// buildListQuery renders filter as SQL with positional arguments
func buildListQuery(filter *ListFilter) (string, []any) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter == nil {
		filter = &ListFilter{}
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			statuses[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}
	if filter.UserID != "" {
		where = append(where, "user_id = "+arg(filter.UserID))
	}
	if filter.Name != "" {
		where = append(where, "name = "+arg(filter.Name))
	}
	if filter.CreatedAfter != nil {
		where = append(where, "created_at >= "+arg(*filter.CreatedAfter))
	}
	if filter.CreatedBefore != nil {
		where = append(where, "created_at <= "+arg(*filter.CreatedBefore))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + jobColumns + " FROM compile_jobs")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	column := "created_at"
	switch filter.SortBy {
	case SortByUpdated:
		column = "updated_at"
	case SortByStatus:
		column = "status"
	}
	order := "DESC"
	if filter.SortOrder == "asc" {
		order = "ASC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, job_id ASC", column, order)

	if filter.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(filter.Offset))
	}
	return sb.String(), args
}

// UpdateJobStatus moves a job to status
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status schemas.JobState, progress *schemas.Progress) error {
	return s.mutate(ctx, jobID, func(job *Job, now time.Time) {
		applyStatus(job, status, progress, now)
	})
}

// UpdateJobError records an error for a job
func (s *PostgresStore) UpdateJobError(ctx context.Context, jobID string, info *schemas.ErrorInfo) error {
	return s.mutate(ctx, jobID, func(job *Job, now time.Time) {
		job.Error = copyError(info)
		job.Updated = now
	})
}

// UpdateJobResult records the compile result and exported artifacts
func (s *PostgresStore) UpdateJobResult(ctx context.Context, jobID string, result *schemas.CompileResult, artifacts []schemas.Artifact) error {
	return s.mutate(ctx, jobID, func(job *Job, now time.Time) {
		job.Result = result
		job.Artifacts = artifacts
		job.Updated = now
	})
}

// mutate applies fn to a locked copy of the job inside a transaction
func (s *PostgresStore) mutate(ctx context.Context, jobID string, fn func(job *Job, now time.Time)) error {
	if jobID == "" {
		return ErrInvalidJobID
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := scanJob(tx.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM compile_jobs WHERE job_id = $1 FOR UPDATE`, jobID))
	if err != nil {
		return err
	}
	fn(job, s.now())

	enc, err := encodeJob(job)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
UPDATE compile_jobs
SET status=$2, updated_at=$3, started_at=$4, completed_at=$5,
  progress=$6, error=$7, result=$8, artifacts=$9
WHERE job_id=$1`,
		job.JobID, string(job.Status), job.Updated, job.StartedAt, job.CompletedAt,
		enc.progress, enc.jobErr, enc.result, enc.artifacts)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.terminal.Remove(jobID)
	return nil
}

// Close closes the database handle
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
