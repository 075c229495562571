// Package api serves the pattern compiler over HTTP
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chicogong/pattern-planner/pkg/compiler"
	"github.com/chicogong/pattern-planner/pkg/compiler/validator"
	"github.com/chicogong/pattern-planner/pkg/exporter"
	"github.com/chicogong/pattern-planner/pkg/logging"
	"github.com/chicogong/pattern-planner/pkg/schemas"
	"github.com/chicogong/pattern-planner/pkg/store"
)

// DefaultMaxConcurrentJobs bounds compilations when no limit is configured
const DefaultMaxConcurrentJobs = 4

// Error codes recorded on failed jobs
const (
	CodeInvalidSpec   = "INVALID_SPEC"
	CodeCompileFailed = "COMPILE_FAILED"
	CodeTimeout       = "COMPILE_TIMEOUT"
	CodeInterrupted   = "INTERRUPTED"
	CodeExportFailed  = "EXPORT_FAILED"
)

// Server holds the API server dependencies
type Server struct {
	store    store.Store
	compiler *compiler.Compiler
	exporter *exporter.Exporter
	prefix   string
	logger   *slog.Logger
	now      func() time.Time

	slots chan struct{}
	seq   atomic.Uint64

	mu      sync.Mutex
	running map[string]*runningJob
	wg      sync.WaitGroup

	baseCtx context.Context
	stop    context.CancelFunc
}

// runningJob guards the status writes of one background compilation so a
// cancellation is never overwritten
type runningJob struct {
	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
}

// Option configures a Server
type Option func(*Server)

// WithExporter uploads job artifacts through e
func WithExporter(e *exporter.Exporter) Option {
	return func(s *Server) { s.exporter = e }
}

// WithDefaultOutputs exports the code and plan of jobs that name no
// outputs under prefix/<job id>/
func WithDefaultOutputs(prefix string) Option {
	return func(s *Server) { s.prefix = strings.TrimSuffix(prefix, "/") }
}

// WithLogger sets the server logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxConcurrentJobs bounds the compilations running at once
func WithMaxConcurrentJobs(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.slots = make(chan struct{}, n)
		}
	}
}

// NewServer creates a new API server
func NewServer(st store.Store, c *compiler.Compiler, opts ...Option) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		store:    st,
		compiler: c,
		logger:   slog.Default(),
		now:      time.Now,
		slots:    make(chan struct{}, DefaultMaxConcurrentJobs),
		running:  make(map[string]*runningJob),
		baseCtx:  ctx,
		stop:     stop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outputs returns the artifact destinations of job
func (s *Server) outputs(job *store.Job) []schemas.Output {
	if len(job.Spec.Outputs) > 0 || s.prefix == "" {
		return job.Spec.Outputs
	}
	dir := s.prefix + "/" + job.JobID + "/"
	return []schemas.Output{
		{Kind: schemas.ArtifactCode, Destination: dir + "code.txt"},
		{Kind: schemas.ArtifactPlan, Destination: dir + "plan.json"},
	}
}

func (s *Server) newJobID() string {
	return fmt.Sprintf("job_%d_%d", s.now().UnixNano(), s.seq.Add(1))
}

// acquire waits for a compilation slot
func (s *Server) acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) release() { <-s.slots }

// RunningJobs returns the number of background compilations in flight
func (s *Server) RunningJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// startJob compiles job in the background
func (s *Server) startJob(job *store.Job) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	run := &runningJob{cancel: cancel}

	s.mu.Lock()
	s.running[job.JobID] = run
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, job.JobID)
			s.mu.Unlock()
			cancel()
		}()
		s.processJob(ctx, run, job)
	}()
}

// cancelJob stops a background compilation. It reports false when the job
// is not running on this server.
func (s *Server) cancelJob(jobID string) bool {
	s.mu.Lock()
	run, ok := s.running[jobID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	run.mu.Lock()
	run.cancelled = true
	run.cancel()
	run.mu.Unlock()
	return true
}

// update runs fn unless the job was cancelled
func (run *runningJob) update(fn func() error) error {
	run.mu.Lock()
	defer run.mu.Unlock()
	if run.cancelled {
		return context.Canceled
	}
	return fn()
}

// processJob drives a job through validating, compiling and exporting.
// Store writes use a context that outlives job cancellation.
func (s *Server) processJob(ctx context.Context, run *runningJob, job *store.Job) {
	jobID := job.JobID
	logger := s.logger.With("job_id", jobID, "pattern", job.Name())
	ctx = logging.WithLogger(ctx, logger)
	storeCtx := context.WithoutCancel(ctx)

	setStatus := func(state schemas.JobState, percent float64, step string) {
		err := run.update(func() error {
			return s.store.UpdateJobStatus(storeCtx, jobID, state, &schemas.Progress{OverallPercent: percent, CurrentStep: step})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Failed to update job status.", "status", state, "error", err)
		}
	}
	fail := func(code string, retryable bool, err error) {
		info := &schemas.ErrorInfo{Code: code, Message: err.Error(), Retryable: retryable}
		uerr := run.update(func() error {
			if err := s.store.UpdateJobError(storeCtx, jobID, info); err != nil {
				return err
			}
			return s.store.UpdateJobStatus(storeCtx, jobID, schemas.JobStateFailed, nil)
		})
		switch {
		case errors.Is(uerr, context.Canceled):
			logger.Info("Job cancelled.")
		case uerr != nil:
			logger.Error("Failed to record job failure.", "error", uerr)
		default:
			logger.Warn("Job failed.", "code", code, "error", err)
		}
	}

	if err := s.acquire(ctx); err != nil {
		fail(CodeInterrupted, true, err)
		return
	}
	defer s.release()

	setStatus(schemas.JobStateValidating, 0, compiler.StepValidate)
	logger.Info("Job started.")

	result, err := s.compiler.CompileWithProgress(ctx, job.Spec, func(step string, percent float64) {
		// compilation covers the first 90%, export the rest
		setStatus(schemas.JobStateCompiling, percent*0.9, step)
	})
	if err != nil {
		code, retryable := classify(err)
		fail(code, retryable, err)
		return
	}

	var artifacts []schemas.Artifact
	if outputs := s.outputs(job); len(outputs) > 0 && s.exporter != nil {
		setStatus(schemas.JobStateExporting, 90, "export")
		artifacts, err = s.exporter.Export(ctx, outputs, result)
		if err != nil {
			fail(CodeExportFailed, true, err)
			return
		}
	}

	err = run.update(func() error {
		if err := s.store.UpdateJobResult(storeCtx, jobID, result, artifacts); err != nil {
			return err
		}
		return s.store.UpdateJobStatus(storeCtx, jobID, schemas.JobStateCompleted, &schemas.Progress{OverallPercent: 100, CurrentStep: "completed"})
	})
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("Job cancelled.")
	case err != nil:
		logger.Error("Failed to store job result.", "error", err)
	default:
		logger.Info("Job completed.", "artifacts", len(artifacts), "plan_valid", result.PlanValid)
	}
}

// classify maps a compile error to a job error code and whether a retry
// could succeed
func classify(err error) (string, bool) {
	switch {
	case errors.Is(err, validator.ErrInvalidSpec):
		return CodeInvalidSpec, false
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, true
	case errors.Is(err, context.Canceled):
		return CodeInterrupted, true
	default:
		return CodeCompileFailed, false
	}
}

// Shutdown cancels background jobs and waits for them to stop or for ctx
// to end
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the server and releases resources
func (s *Server) Close() error {
	s.stop()
	s.wg.Wait()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
