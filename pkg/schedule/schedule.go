// Package schedule builds canonical, symmetry-broken vertex orderings for
// small graph patterns.
package schedule

import (
	"errors"
	"fmt"

	"github.com/chicogong/pattern-planner/pkg/matrix"
)

var (
	// ErrTooSmall is returned for patterns with fewer than two vertices
	ErrTooSmall = errors.New("pattern needs at least two vertices")

	// ErrNoMarkedEdge is returned when canonicalization has no anchor
	ErrNoMarkedEdge = errors.New("pattern has no marked edge")

	// ErrMultipleMarkedEdges is returned when more than one pair is marked
	ErrMultipleMarkedEdges = errors.New("pattern has more than one marked edge")

	// ErrNoValidOrdering is returned when every ordering violates the
	// connectivity rule, which happens for disconnected patterns
	ErrNoValidOrdering = errors.New("no ordering satisfies the pruning rules")

	// ErrNoEdges is returned when generating schedules for an edgeless pattern
	ErrNoEdges = errors.New("pattern has no edges")
)

// Schedule is one concrete vertex ordering of a pattern. It is never
// modified after construction.
type Schedule struct {
	m *matrix.Matrix
}

// New wraps a copy of m in a Schedule
func New(m *matrix.Matrix) (*Schedule, error) {
	if m == nil || m.Size() < 2 {
		return nil, ErrTooSmall
	}
	return &Schedule{m: m.Clone()}, nil
}

// Parse builds a Schedule from the ASCII pattern encoding
func Parse(size int, buf string) (*Schedule, error) {
	if size < 2 {
		return nil, ErrTooSmall
	}
	m, err := matrix.Parse(size, buf)
	if err != nil {
		return nil, err
	}
	return &Schedule{m: m}, nil
}

// Size returns the number of pattern vertices
func (s *Schedule) Size() int {
	return s.m.Size()
}

// At returns the cell value at (i, j)
func (s *Schedule) At(i, j int) int {
	return s.m.At(i, j)
}

// Matrix returns a copy of the underlying matrix
func (s *Schedule) Matrix() *matrix.Matrix {
	return s.m.Clone()
}

// Rows returns the matrix as rows
func (s *Schedule) Rows() [][]int {
	return s.m.Rows()
}

// String returns the ASCII encoding of the schedule matrix
func (s *Schedule) String() string {
	return s.m.String()
}

// Equal reports whether two schedules hold identical matrices
func (s *Schedule) Equal(o *Schedule) bool {
	return o != nil && s.m.Equal(o.m)
}

// MarkedPair returns the endpoints (a < b) of the single marked edge
func (s *Schedule) MarkedPair() (int, int, error) {
	pairs := s.m.MarkedPairs()
	switch len(pairs) {
	case 0:
		return 0, 0, ErrNoMarkedEdge
	case 1:
		return pairs[0][0], pairs[0][1], nil
	default:
		return 0, 0, fmt.Errorf("%w: %v", ErrMultipleMarkedEdges, pairs)
	}
}
