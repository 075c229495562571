// Package validator checks pattern compilation requests before any stage of
// the pipeline runs.
package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/chicogong/pattern-planner/pkg/schemas"
	"github.com/chicogong/pattern-planner/pkg/storage"
)

// MaxPatternSize bounds the pattern vertex count. Schedule search is
// factorial in the size.
const MaxPatternSize = 12

// ErrInvalidSpec wraps every validation failure
var ErrInvalidSpec = errors.New("invalid pattern spec")

// Validator validates PatternSpec
type Validator struct {
	resolver Resolver
}

// New creates a Validator resolving hosts with the default resolver
func New() *Validator {
	return &Validator{}
}

// NewWithResolver creates a Validator that resolves remote hosts with r
func NewWithResolver(r Resolver) *Validator {
	return &Validator{resolver: r}
}

// Validate checks the spec metadata, the inline pattern buffer and every
// URI the spec references
func (v *Validator) Validate(ctx context.Context, spec *schemas.PatternSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: spec is nil", ErrInvalidSpec)
	}
	if spec.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	if spec.Size < 2 || spec.Size > MaxPatternSize {
		return fmt.Errorf("%w: size %d out of range [2, %d]", ErrInvalidSpec, spec.Size, MaxPatternSize)
	}

	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	if spec.Options != nil && spec.Options.Codegen != nil {
		level := spec.Options.Codegen.OptimizationLevel
		if level < 0 || level > 3 {
			return fmt.Errorf("%w: optimization level %d out of range [0, 3]", ErrInvalidSpec, level)
		}
	}

	if spec.Adjacency != "" {
		if err := ValidateAdjacency(spec.Size, spec.Adjacency); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}
	}

	if spec.Source != "" {
		if err := v.validateURI(ctx, spec.Source, true); err != nil {
			return fmt.Errorf("%w: source: %w", ErrInvalidSpec, err)
		}
	}

	for i, out := range spec.Outputs {
		if err := v.validateURI(ctx, out.Destination, false); err != nil {
			return fmt.Errorf("%w: output %d (%s): %w", ErrInvalidSpec, i, out.Kind, err)
		}
	}

	return nil
}

// ValidateAdjacency checks a row-major ASCII buffer of size*size
// characters. '1' is an edge, '2' a marker and anything else no edge. The
// diagonal must be empty and at most one pair may be marked, mirrored
// across the diagonal.
func ValidateAdjacency(size int, buf string) error {
	if len(buf) != size*size {
		return fmt.Errorf("adjacency has %d characters, want %d", len(buf), size*size)
	}

	marked := 0
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			c := buf[i*size+j]
			if i == j && (c == '1' || c == '2') {
				return fmt.Errorf("adjacency cell (%d, %d): self loop", i, j)
			}
			if c != '2' {
				continue
			}
			if buf[j*size+i] != '2' {
				return fmt.Errorf("adjacency cell (%d, %d): marker not mirrored", i, j)
			}
			if i < j {
				marked++
			}
		}
	}
	if marked > 1 {
		return fmt.Errorf("adjacency marks %d edges, want at most one", marked)
	}
	return nil
}

// validateURI checks the scheme whitelist. Remote sources also get the
// address check since the compiler fetches them.
func (v *Validator) validateURI(ctx context.Context, uri string, fetched bool) error {
	scheme, _, err := storage.ParseURI(uri)
	if err != nil {
		return err
	}
	if !storage.IsAllowedScheme(scheme) {
		return fmt.Errorf("scheme '%s' not allowed", scheme)
	}

	if fetched && (scheme == "http" || scheme == "https") {
		if err := CheckHTTPURI(ctx, v.resolver, uri); err != nil {
			return fmt.Errorf("security check failed: %w", err)
		}
	}
	return nil
}
