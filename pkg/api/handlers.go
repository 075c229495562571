package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chicogong/pattern-planner/pkg/auth"
	"github.com/chicogong/pattern-planner/pkg/compiler/validator"
	"github.com/chicogong/pattern-planner/pkg/schemas"
	"github.com/chicogong/pattern-planner/pkg/store"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// adminRole sees and manages every user's jobs
const adminRole = "admin"

// CreateJobRequest represents the request body for creating a job
type CreateJobRequest struct {
	Spec *schemas.PatternSpec `json:"spec"`
}

// CreateJobResponse represents the response for creating a job
type CreateJobResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CompileResponse is the body of a synchronous compile
type CompileResponse struct {
	Result    *schemas.CompileResult `json:"result"`
	Artifacts []schemas.Artifact     `json:"artifacts,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HandleCreateJob handles POST /api/v1/jobs
func (s *Server) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	spec, ok := s.decodeSpec(w, r)
	if !ok {
		return
	}

	now := s.now()
	job := &store.Job{
		JobID:   s.newJobID(),
		Created: now,
		Updated: now,
		Status:  schemas.JobStatePending,
		Spec:    spec,
	}

	if err := s.store.CreateJob(r.Context(), job); err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to create job: %v", err))
		return
	}

	s.startJob(job)

	s.sendJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:     job.JobID,
		Status:    string(schemas.JobStatePending),
		CreatedAt: job.Created,
	})
}

// HandleCompile handles POST /api/v1/compile. The pattern is compiled
// within the request; add ?format=code to get the generated code as text.
func (s *Server) HandleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	spec, ok := s.decodeSpec(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := s.acquire(ctx); err != nil {
		s.sendError(w, http.StatusServiceUnavailable, "unavailable", "Request cancelled while waiting for a compile slot")
		return
	}
	defer s.release()

	result, err := s.compiler.Compile(ctx, spec)
	if err != nil {
		s.sendCompileError(w, err)
		return
	}

	var artifacts []schemas.Artifact
	if len(spec.Outputs) > 0 && s.exporter != nil {
		if artifacts, err = s.exporter.Export(ctx, spec.Outputs, result); err != nil {
			s.sendError(w, http.StatusBadGateway, "export_error", err.Error())
			return
		}
	}

	if r.URL.Query().Get("format") == "code" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		for _, line := range result.Code {
			fmt.Fprintln(w, line)
		}
		return
	}
	s.sendJSON(w, http.StatusOK, CompileResponse{Result: result, Artifacts: artifacts})
}

// HandleGetJob handles GET /api/v1/jobs/{id}
func (s *Server) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	withResult := r.URL.Query().Get("result") != "false"
	s.sendJSON(w, http.StatusOK, job.ToJobStatus(withResult))
}

// HandleListJobs handles GET /api/v1/jobs
func (s *Server) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	if id, ok := auth.FromContext(r.Context()); ok && id.Role != adminRole {
		filter.UserID = id.UserID
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to list jobs: %v", err))
		return
	}

	statuses := make([]*schemas.JobStatus, len(jobs))
	for i, job := range jobs {
		statuses[i] = job.ToJobStatus(false)
	}
	s.sendJSON(w, http.StatusOK, statuses)
}

// HandleDeleteJob handles DELETE /api/v1/jobs/{id}. An active job is
// cancelled; a finished one is removed along with its artifacts.
func (s *Server) HandleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if !job.IsTerminal() {
		s.cancelJob(job.JobID)
		if err := s.store.UpdateJobStatus(ctx, job.JobID, schemas.JobStateCancelled, nil); err != nil {
			s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to cancel job: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if s.exporter != nil && len(job.Artifacts) > 0 {
		if err := s.exporter.Remove(ctx, job.Artifacts); err != nil {
			s.sendError(w, http.StatusBadGateway, "export_error", err.Error())
			return
		}
	}
	if err := s.store.DeleteJob(ctx, job.JobID); err != nil && !errors.Is(err, store.ErrJobNotFound) {
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to delete job: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth handles GET /health
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"time":         s.now(),
		"running_jobs": s.RunningJobs(),
	})
}

// decodeSpec reads and validates the spec in a CreateJobRequest body. The
// caller's identity, when known, becomes the spec owner.
func (s *Server) decodeSpec(w http.ResponseWriter, r *http.Request) (*schemas.PatternSpec, bool) {
	var req CreateJobRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Invalid request body: %v", err))
		return nil, false
	}
	if req.Spec == nil {
		s.sendError(w, http.StatusBadRequest, "missing_spec", "Pattern specification is required")
		return nil, false
	}

	spec := req.Spec
	if id, ok := auth.FromContext(r.Context()); ok {
		spec.UserID = id.UserID
	}
	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = s.now()
	}

	if err := s.compiler.Validate(r.Context(), spec); err != nil {
		s.sendError(w, http.StatusBadRequest, "validation_error", err.Error())
		return nil, false
	}
	return spec, true
}

// lookupJob loads the job named in the path. Jobs owned by another user
// are reported as missing.
func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (*store.Job, bool) {
	jobID := extractJobID(r)
	if jobID == "" {
		s.sendError(w, http.StatusBadRequest, "invalid_job_id", "Job ID is required")
		return nil, false
	}

	job, err := s.store.GetJob(r.Context(), jobID)
	if err == nil && !visible(r.Context(), job) {
		err = store.ErrJobNotFound
	}
	switch {
	case errors.Is(err, store.ErrJobNotFound):
		s.sendError(w, http.StatusNotFound, "job_not_found", fmt.Sprintf("Job %s not found", jobID))
		return nil, false
	case err != nil:
		s.sendError(w, http.StatusInternalServerError, "store_error", fmt.Sprintf("Failed to get job: %v", err))
		return nil, false
	}
	return job, true
}

func visible(ctx context.Context, job *store.Job) bool {
	id, ok := auth.FromContext(ctx)
	if !ok || id.Role == adminRole {
		return true
	}
	return job.UserID() == id.UserID
}

func (s *Server) sendCompileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validator.ErrInvalidSpec):
		s.sendError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.sendError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.Is(err, context.Canceled):
		s.sendError(w, http.StatusServiceUnavailable, "cancelled", err.Error())
	default:
		s.sendError(w, http.StatusUnprocessableEntity, "compile_error", err.Error())
	}
}

// Helper methods

func (s *Server) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response.", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}

// parseListFilter reads status (comma separated), user_id, name, limit,
// offset, sort_by and sort_order query parameters
func parseListFilter(r *http.Request) (*store.ListFilter, error) {
	q := r.URL.Query()
	filter := &store.ListFilter{
		UserID:    q.Get("user_id"),
		Name:      q.Get("name"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}

	if raw := q.Get("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			filter.Status = append(filter.Status, schemas.JobState(strings.TrimSpace(st)))
		}
	}

	switch filter.SortBy {
	case "", store.SortByCreated, store.SortByUpdated, store.SortByStatus:
	default:
		return nil, fmt.Errorf("invalid sort_by %q", filter.SortBy)
	}
	switch filter.SortOrder {
	case "", "asc", "desc":
	default:
		return nil, fmt.Errorf("invalid sort_order %q", filter.SortOrder)
	}

	var err error
	if filter.Limit, err = nonNegative(q, "limit"); err != nil {
		return nil, err
	}
	if filter.Offset, err = nonNegative(q, "offset"); err != nil {
		return nil, err
	}
	return filter, nil
}

func nonNegative(q map[string][]string, key string) (int, error) {
	values := q[key]
	if len(values) == 0 || values[0] == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(values[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, values[0])
	}
	return n, nil
}

// extractJobID returns the {id} path value, falling back to the path
// suffix when the handler is mounted without a pattern
func extractJobID(r *http.Request) string {
	if id := r.PathValue("id"); id != "" {
		return id
	}
	const prefix = "/api/v1/jobs/"
	id, ok := strings.CutPrefix(r.URL.Path, prefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
