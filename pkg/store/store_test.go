package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chicogong/pattern-planner/pkg/schemas"
)

func newJob(id string, status schemas.JobState, created time.Time) *Job {
	return &Job{
		JobID:   id,
		Created: created,
		Updated: created,
		Status:  status,
		Spec:    &schemas.PatternSpec{Name: "triangle", UserID: "user-1", Size: 3, Adjacency: "011101110"},
	}
}

// testStore runs a suite of tests against any Store implementation
func testStore(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateJob", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.CreateJob(ctx, newJob("create-1", schemas.JobStatePending, base)); err != nil {
			t.Fatalf("CreateJob() failed: %v", err)
		}

		got, err := s.GetJob(ctx, "create-1")
		if err != nil {
			t.Fatalf("GetJob() failed: %v", err)
		}
		if got.Status != schemas.JobStatePending {
			t.Errorf("Expected status pending, got %s", got.Status)
		}
		if got.Spec == nil || got.Spec.Adjacency != "011101110" {
			t.Errorf("Spec not preserved: %+v", got.Spec)
		}
	})

	t.Run("CreateDuplicateJob", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		job := newJob("duplicate", schemas.JobStatePending, base)
		if err := s.CreateJob(ctx, job); err != nil {
			t.Fatalf("First CreateJob() failed: %v", err)
		}
		if err := s.CreateJob(ctx, job); !errors.Is(err, ErrJobExists) {
			t.Errorf("Expected ErrJobExists, got %v", err)
		}
	})

	t.Run("InvalidJobID", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.CreateJob(ctx, &Job{}); !errors.Is(err, ErrInvalidJobID) {
			t.Errorf("CreateJob: expected ErrInvalidJobID, got %v", err)
		}
		if _, err := s.GetJob(ctx, ""); !errors.Is(err, ErrInvalidJobID) {
			t.Errorf("GetJob: expected ErrInvalidJobID, got %v", err)
		}
	})

	t.Run("GetNonExistentJob", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		if _, err := s.GetJob(context.Background(), "nonexistent"); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("UpdateJob", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		job := newJob("update-1", schemas.JobStatePending, base)
		if err := s.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob() failed: %v", err)
		}

		job.Status = schemas.JobStateCompiling
		if err := s.UpdateJob(ctx, job); err != nil {
			t.Fatalf("UpdateJob() failed: %v", err)
		}

		got, err := s.GetJob(ctx, job.JobID)
		if err != nil {
			t.Fatalf("GetJob() failed: %v", err)
		}
		if got.Status != schemas.JobStateCompiling {
			t.Errorf("Expected status compiling, got %s", got.Status)
		}

		if err := s.UpdateJob(ctx, newJob("missing", schemas.JobStatePending, base)); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Expected ErrJobNotFound for missing job, got %v", err)
		}
	})

	t.Run("UpdateJobStatus", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.CreateJob(ctx, newJob("status-1", schemas.JobStatePending, base)); err != nil {
			t.Fatalf("CreateJob() failed: %v", err)
		}

		progress := &schemas.Progress{OverallPercent: 50, CurrentStep: "codegen"}
		if err := s.UpdateJobStatus(ctx, "status-1", schemas.JobStateCompiling, progress); err != nil {
			t.Fatalf("UpdateJobStatus() failed: %v", err)
		}

		got, err := s.GetJob(ctx, "status-1")
		if err != nil {
			t.Fatalf("GetJob() failed: %v", err)
		}
		if got.Progress == nil || got.Progress.OverallPercent != 50 {
			t.Fatalf("Expected progress 50%%, got %+v", got.Progress)
		}
		if got.StartedAt == nil {
			t.Error("Expected StartedAt to be stamped")
		}
		if got.CompletedAt != nil {
			t.Error("CompletedAt stamped before a terminal state")
		}

		if err := s.UpdateJobStatus(ctx, "status-1", schemas.JobStateCompleted, nil); err != nil {
			t.Fatalf("UpdateJobStatus() failed: %v", err)
		}
		got, err = s.GetJob(ctx, "status-1")
		if err != nil {
			t.Fatalf("GetJob() failed: %v", err)
		}
		if got.CompletedAt == nil {
			t.Error("Expected CompletedAt to be stamped")
		}
		if got.Progress == nil || got.Progress.CurrentStep != "codegen" {
			t.Errorf("Nil progress must keep the previous progress, got %+v", got.Progress)
		}
	})

	t.Run("UpdateJobError", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.CreateJob(ctx, newJob("error-1", schemas.JobStateCompiling, base)); err != nil {
			t.Fatalf("CreateJob() failed: %v", err)
		}

		info := &schemas.ErrorInfo{Code: "COMPILE_FAILED", Message: "pattern has no edges"}
		if err := s.UpdateJobError(ctx, "error-1", info); err != nil {
			t.Fatalf("UpdateJobError() failed: %v", err)
		}

		got, err := s.GetJob(ctx, "error-1")
		if err != nil {
			t.Fatalf("GetJob() failed: %v", err)
		}
		if got.Error == nil || got.Error.Code != "COMPILE_FAILED" {
			t.Errorf("Expected error code COMPILE_FAILED, got %+v", got.Error)
		}
	})

	t.Run("UpdateJobResult", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.CreateJob(ctx, newJob("result-1", schemas.JobStateExporting, base)); err != nil {
			t.Fatalf("CreateJob() failed: %v", err)
		}

		result := &schemas.CompileResult{Name: "triangle", PatternSize: 3, Code: []string{"neighbors_2 = {}"}}
		artifacts := []schemas.Artifact{{Kind: schemas.ArtifactCode, Destination: "file:///tmp/code.txt", Size: 16}}
		if err := s.UpdateJobResult(ctx, "result-1", result, artifacts); err != nil {
			t.Fatalf("UpdateJobResult() failed: %v", err)
		}

		got, err := s.GetJob(ctx, "result-1")
		if err != nil {
			t.Fatalf("GetJob() failed: %v", err)
		}
		if got.Result == nil || got.Result.PatternSize != 3 {
			t.Errorf("Result not stored: %+v", got.Result)
		}
		if len(got.Artifacts) != 1 || got.Artifacts[0].Size != 16 {
			t.Errorf("Artifacts not stored: %+v", got.Artifacts)
		}
	})

	t.Run("DeleteJob", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.CreateJob(ctx, newJob("delete-1", schemas.JobStateCompleted, base)); err != nil {
			t.Fatalf("CreateJob() failed: %v", err)
		}
		// load once so a caching store holds it
		if _, err := s.GetJob(ctx, "delete-1"); err != nil {
			t.Fatalf("GetJob() failed: %v", err)
		}

		if err := s.DeleteJob(ctx, "delete-1"); err != nil {
			t.Fatalf("DeleteJob() failed: %v", err)
		}
		if _, err := s.GetJob(ctx, "delete-1"); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Expected ErrJobNotFound after delete, got %v", err)
		}
		if err := s.DeleteJob(ctx, "delete-1"); !errors.Is(err, ErrJobNotFound) {
			t.Errorf("Expected ErrJobNotFound on second delete, got %v", err)
		}
	})

	t.Run("ListJobs", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		ctx := context.Background()

		statuses := []schemas.JobState{
			schemas.JobStatePending,
			schemas.JobStatePending,
			schemas.JobStateCompiling,
			schemas.JobStateCompleted,
			schemas.JobStateFailed,
		}
		for i, status := range statuses {
			job := newJob(fmt.Sprintf("list-%d", i), status, base.Add(time.Duration(i)*time.Minute))
			if i == 3 {
				job.Spec.Name = "square"
			}
			if i == 4 {
				job.Spec.UserID = "user-2"
			}
			if err := s.CreateJob(ctx, job); err != nil {
				t.Fatalf("CreateJob() failed: %v", err)
			}
		}

		all, err := s.ListJobs(ctx, nil)
		if err != nil {
			t.Fatalf("ListJobs() failed: %v", err)
		}
		if len(all) != 5 {
			t.Fatalf("Expected 5 jobs, got %d", len(all))
		}
		if all[0].JobID != "list-4" {
			t.Errorf("Expected newest job first, got %s", all[0].JobID)
		}

		pending, err := s.ListJobs(ctx, &ListFilter{Status: []schemas.JobState{schemas.JobStatePending}})
		if err != nil {
			t.Fatalf("ListJobs() failed: %v", err)
		}
		if len(pending) != 2 {
			t.Errorf("Expected 2 pending jobs, got %d", len(pending))
		}

		mine, err := s.ListJobs(ctx, &ListFilter{UserID: "user-2"})
		if err != nil {
			t.Fatalf("ListJobs() failed: %v", err)
		}
		if len(mine) != 1 || mine[0].JobID != "list-4" {
			t.Errorf("Expected only list-4 for user-2, got %d jobs", len(mine))
		}

		named, err := s.ListJobs(ctx, &ListFilter{Name: "square"})
		if err != nil {
			t.Fatalf("ListJobs() failed: %v", err)
		}
		if len(named) != 1 || named[0].JobID != "list-3" || named[0].Name() != "square" {
			t.Errorf("Expected only list-3 named square, got %d jobs", len(named))
		}

		after := base.Add(2 * time.Minute)
		page, err := s.ListJobs(ctx, &ListFilter{CreatedAfter: &after, SortOrder: "asc", Limit: 2, Offset: 1})
		if err != nil {
			t.Fatalf("ListJobs() failed: %v", err)
		}
		if len(page) != 2 || page[0].JobID != "list-3" || page[1].JobID != "list-4" {
			ids := []string{}
			for _, j := range page {
				ids = append(ids, j.JobID)
			}
			t.Errorf("Expected [list-3 list-4], got %v", ids)
		}
	})
}

// TestMemoryStore runs all tests against the memory store
func TestMemoryStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

// TestPostgresStore runs the suite against PLANNER_TEST_DATABASE_URL
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PLANNER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PLANNER_TEST_DATABASE_URL not set")
	}

	testStore(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			t.Fatalf("NewPostgresStore() failed: %v", err)
		}
		if err := s.ensureSchema(ctx); err != nil {
			t.Fatalf("ensureSchema() failed: %v", err)
		}
		if _, err := s.db.ExecContext(ctx, "TRUNCATE compile_jobs"); err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
		return s
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateJob(ctx, newJob("copy-1", schemas.JobStatePending, time.Now())); err != nil {
		t.Fatalf("CreateJob() failed: %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "copy-1", schemas.JobStateCompiling, &schemas.Progress{OverallPercent: 10}); err != nil {
		t.Fatalf("UpdateJobStatus() failed: %v", err)
	}

	got, _ := s.GetJob(ctx, "copy-1")
	got.Progress.OverallPercent = 99
	got.Status = schemas.JobStateFailed

	again, _ := s.GetJob(ctx, "copy-1")
	if again.Progress.OverallPercent != 10 || again.Status != schemas.JobStateCompiling {
		t.Errorf("Stored job changed through a returned copy: %+v", again)
	}
}

func TestBuildListQuery(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildListQuery(&ListFilter{
		Status:       []schemas.JobState{schemas.JobStateFailed},
		UserID:       "user-1",
		CreatedAfter: &after,
		SortBy:       SortByUpdated,
		SortOrder:    "asc",
		Limit:        10,
		Offset:       20,
	})

	wantParts := []string{
		"WHERE status = ANY($1) AND user_id = $2 AND created_at >= $3",
		"ORDER BY updated_at ASC, job_id ASC",
		"LIMIT $4 OFFSET $5",
	}
	for _, part := range wantParts {
		if !strings.Contains(query, part) {
			t.Errorf("query %q missing %q", query, part)
		}
	}
	if len(args) != 5 {
		t.Fatalf("Expected 5 args, got %d", len(args))
	}
	if statuses, ok := args[0].([]string); !ok || statuses[0] != "failed" {
		t.Errorf("Expected status list arg, got %#v", args[0])
	}

	query, args = buildListQuery(nil)
	if strings.Contains(query, "WHERE") || len(args) != 0 {
		t.Errorf("nil filter produced %q with %d args", query, len(args))
	}
	if !strings.Contains(query, "ORDER BY created_at DESC") {
		t.Errorf("Expected default newest-first order, got %q", query)
	}
}
