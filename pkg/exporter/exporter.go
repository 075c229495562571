// Package exporter writes compile results to the artifact destinations a
// pattern spec names.
package exporter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chicogong/pattern-planner/pkg/schemas"
	"github.com/chicogong/pattern-planner/pkg/storage"
)

// ErrNoPlan is returned when a plan artifact is requested for a result
// without one
var ErrNoPlan = errors.New("result has no execution plan")

// Backend is the storage the exporter writes through
type Backend interface {
	Put(ctx context.Context, uri string, data io.Reader) error
	Delete(ctx context.Context, uri string) error
}

// Exporter renders artifacts and uploads them
type Exporter struct {
	backend Backend
}

// New creates an exporter writing through backend, usually a
// storage.Router
func New(backend Backend) *Exporter {
	return &Exporter{backend: backend}
}

// Export writes one artifact per output and returns their descriptions in
// output order. It stops at the first failed upload.
func (e *Exporter) Export(ctx context.Context, outputs []schemas.Output, result *schemas.CompileResult) ([]schemas.Artifact, error) {
	artifacts := make([]schemas.Artifact, 0, len(outputs))
	for _, out := range outputs {
		data, err := Render(out.Kind, result)
		if err != nil {
			return artifacts, fmt.Errorf("failed to render %s artifact: %w", out.Kind, err)
		}

		if err := e.backend.Put(ctx, out.Destination, bytes.NewReader(data)); err != nil {
			return artifacts, fmt.Errorf("failed to upload %s artifact to %s: %w", out.Kind, out.Destination, err)
		}

		sum := sha256.Sum256(data)
		artifacts = append(artifacts, schemas.Artifact{
			Kind:        out.Kind,
			Destination: out.Destination,
			Size:        int64(len(data)),
			SHA256:      hex.EncodeToString(sum[:]),
		})
	}
	return artifacts, nil
}

// Remove deletes exported artifacts. Missing objects and read-only
// backends are skipped.
func (e *Exporter) Remove(ctx context.Context, artifacts []schemas.Artifact) error {
	var errs []error
	for _, a := range artifacts {
		err := e.backend.Delete(ctx, a.Destination)
		if err == nil || errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrReadOnly) {
			continue
		}
		errs = append(errs, fmt.Errorf("failed to remove %s: %w", a.Destination, err))
	}
	return errors.Join(errs...)
}

// Render encodes result as the artifact kind: the generated code as
// text, or the plan or whole result as indented JSON
func Render(kind string, result *schemas.CompileResult) ([]byte, error) {
	switch kind {
	case schemas.ArtifactCode:
		if len(result.Code) == 0 {
			return []byte{}, nil
		}
		return []byte(strings.Join(result.Code, "\n") + "\n"), nil
	case schemas.ArtifactPlan:
		if result.Plan == nil {
			return nil, ErrNoPlan
		}
		return json.MarshalIndent(result.Plan, "", "  ")
	case schemas.ArtifactResult:
		return json.MarshalIndent(result, "", "  ")
	default:
		return nil, fmt.Errorf("unknown artifact kind '%s'", kind)
	}
}
