package schedule

import (
	"fmt"

	"github.com/chicogong/pattern-planner/pkg/matrix"
)

// Representative is one isomorphism class of marked-edge choices for a
// pattern, with the canonical schedules emitted for it.
type Representative struct {
	// Edge is the pattern edge whose marking produced this class
	Edge [2]int

	// Symmetric is true when the marked endpoints are interchangeable
	Symmetric bool

	// Schedules holds one canonical schedule, or two (one per orientation
	// of the marked edge) when Symmetric is false
	Schedules []*Schedule
}

// Generate marks every edge of an unmarked pattern in turn, keeps one
// mapping per isomorphism class and canonicalizes each survivor. Existing
// marker cells in pattern are treated as plain edges.
func Generate(pattern *matrix.Matrix) ([]Representative, error) {
	if pattern == nil || pattern.Size() < 2 {
		return nil, ErrTooSmall
	}

	base := pattern.Clone()
	n := base.Size()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if base.At(i, j) == matrix.Marked {
				base.Set(i, j, matrix.Edge)
			}
		}
	}

	edges := base.Edges()
	if len(edges) == 0 {
		return nil, ErrNoEdges
	}

	var reps []Representative
	var mappings []*matrix.Matrix
	for _, e := range edges {
		mapping := base.Clone()
		mapping.Set(e[0], e[1], matrix.Marked)
		mapping.Set(e[1], e[0], matrix.Marked)

		if seenIsomorphic(mappings, mapping) {
			continue
		}
		mappings = append(mappings, mapping)

		rep, err := represent(e, mapping)
		if err != nil {
			return nil, fmt.Errorf("edge %d-%d: %w", e[0], e[1], err)
		}
		reps = append(reps, rep)
	}
	return reps, nil
}

// FromPattern returns the representatives for pattern. A pattern with one
// marked pair is anchored on that pair; an unmarked pattern goes through
// Generate.
func FromPattern(pattern *matrix.Matrix) ([]Representative, error) {
	if pattern == nil || pattern.Size() < 2 {
		return nil, ErrTooSmall
	}

	pairs := pattern.MarkedPairs()
	switch len(pairs) {
	case 0:
		return Generate(pattern)
	case 1:
		rep, err := represent(pairs[0], pattern.Clone())
		if err != nil {
			return nil, fmt.Errorf("edge %d-%d: %w", pairs[0][0], pairs[0][1], err)
		}
		return []Representative{rep}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrMultipleMarkedEdges, pairs)
	}
}

// Schedules flattens the schedules of every representative in order
func Schedules(reps []Representative) []*Schedule {
	var out []*Schedule
	for _, r := range reps {
		out = append(out, r.Schedules...)
	}
	return out
}

// Orientations returns the canonical schedule of a marked pattern and,
// when its marked endpoints are not interchangeable, the schedule with the
// marked edge reversed.
func Orientations(s *Schedule) (bool, []*Schedule, error) {
	symmetric, err := IsColorSymmetric(s)
	if err != nil {
		return false, nil, err
	}

	canon, err := Canonical(s)
	if err != nil {
		return false, nil, err
	}
	out := []*Schedule{canon}
	if !symmetric {
		// both pruning rules treat positions 0 and 1 alike, so the same
		// free-vertex order stays canonical after the swap
		rev := canon.m.Clone()
		rev.SwapVertices(0, 1)
		out = append(out, &Schedule{m: rev})
	}
	return symmetric, out, nil
}

func represent(edge [2]int, mapping *matrix.Matrix) (Representative, error) {
	s := &Schedule{m: mapping}
	symmetric, schedules, err := Orientations(s)
	if err != nil {
		return Representative{}, err
	}
	return Representative{Edge: edge, Symmetric: symmetric, Schedules: schedules}, nil
}

func seenIsomorphic(seen []*matrix.Matrix, m *matrix.Matrix) bool {
	for _, s := range seen {
		if IsIsomorphic(s, m) {
			return true
		}
	}
	return false
}
