package exporter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicogong/pattern-planner/pkg/schemas"
	"github.com/chicogong/pattern-planner/pkg/storage"
)

func sampleResult() *schemas.CompileResult {
	return &schemas.CompileResult{
		Name:        "triangle",
		PatternSize: 3,
		Code:        []string{"for v1 in neighbors(v0):", "  emit(v0, v1)"},
		Plan: &schemas.ExecutionPlan{
			Stages: [][]schemas.TaskNode{{{VertexID: 0, EstimatedCost: 1, RequiredMemory: 1024, RequiredCores: 1}}},
		},
	}
}

func localRouter() *storage.Router {
	r := storage.NewRouter()
	r.Register(storage.NewLocalStorage(), "file")
	return r
}

func TestExport_Local(t *testing.T) {
	dir := t.TempDir()
	outputs := []schemas.Output{
		{Kind: schemas.ArtifactCode, Destination: "file://" + filepath.Join(dir, "code.txt")},
		{Kind: schemas.ArtifactPlan, Destination: "file://" + filepath.Join(dir, "plan.json")},
		{Kind: schemas.ArtifactResult, Destination: "file://" + filepath.Join(dir, "result.json")},
	}

	artifacts, err := New(localRouter()).Export(context.Background(), outputs, sampleResult())
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	code, err := os.ReadFile(filepath.Join(dir, "code.txt"))
	require.NoError(t, err)
	assert.Equal(t, "for v1 in neighbors(v0):\n  emit(v0, v1)\n", string(code))

	sum := sha256.Sum256(code)
	assert.Equal(t, hex.EncodeToString(sum[:]), artifacts[0].SHA256)
	assert.Equal(t, int64(len(code)), artifacts[0].Size)
	assert.Equal(t, schemas.ArtifactCode, artifacts[0].Kind)

	planData, err := os.ReadFile(filepath.Join(dir, "plan.json"))
	require.NoError(t, err)
	var plan schemas.ExecutionPlan
	require.NoError(t, json.Unmarshal(planData, &plan))
	assert.Len(t, plan.Stages, 1)

	resultData, err := os.ReadFile(filepath.Join(dir, "result.json"))
	require.NoError(t, err)
	var result schemas.CompileResult
	require.NoError(t, json.Unmarshal(resultData, &result))
	assert.Equal(t, "triangle", result.Name)
}

func TestExport_NoPlan(t *testing.T) {
	result := sampleResult()
	result.Plan = nil
	outputs := []schemas.Output{
		{Kind: schemas.ArtifactPlan, Destination: "file://" + filepath.Join(t.TempDir(), "plan.json")},
	}

	_, err := New(localRouter()).Export(context.Background(), outputs, result)
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestExport_UnsupportedScheme(t *testing.T) {
	dir := t.TempDir()
	outputs := []schemas.Output{
		{Kind: schemas.ArtifactCode, Destination: "file://" + filepath.Join(dir, "code.txt")},
		{Kind: schemas.ArtifactPlan, Destination: "s3://artifacts/plan.json"},
	}

	artifacts, err := New(localRouter()).Export(context.Background(), outputs, sampleResult())
	assert.ErrorIs(t, err, storage.ErrUnsupportedScheme)
	// artifacts written before the failure are still reported
	assert.Len(t, artifacts, 1)
}

type failingBackend struct{ err error }

func (f failingBackend) Put(ctx context.Context, uri string, data io.Reader) error { return f.err }
func (f failingBackend) Delete(ctx context.Context, uri string) error            { return f.err }

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "code.txt")
	outputs := []schemas.Output{{Kind: schemas.ArtifactCode, Destination: "file://" + target}}

	e := New(localRouter())
	artifacts, err := e.Export(context.Background(), outputs, sampleResult())
	require.NoError(t, err)
	require.FileExists(t, target)

	require.NoError(t, e.Remove(context.Background(), artifacts))
	assert.NoFileExists(t, target)

	readOnly := New(failingBackend{err: storage.ErrReadOnly})
	assert.NoError(t, readOnly.Remove(context.Background(), artifacts))

	broken := New(failingBackend{err: errors.New("connection reset")})
	assert.ErrorContains(t, broken.Remove(context.Background(), artifacts), "connection reset")
}

func TestRender_UnknownKind(t *testing.T) {
	_, err := Render("binary", sampleResult())
	assert.ErrorContains(t, err, "unknown artifact kind")
}
