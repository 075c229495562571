package schedule

import (
	"github.com/chicogong/pattern-planner/pkg/matrix"
)

// MoveMarkedToFront returns a new schedule whose marked endpoints sit at
// positions 0 and 1, lower endpoint first.
func MoveMarkedToFront(s *Schedule) (*Schedule, error) {
	a, b, err := s.MarkedPair()
	if err != nil {
		return nil, err
	}

	m := s.m.Clone()
	// a < b, so moving a never displaces b
	if a != 0 {
		m.SwapVertices(0, a)
	}
	if b != 1 {
		m.SwapVertices(1, b)
	}
	return &Schedule{m: m}, nil
}

// Canonical moves the marked edge to the front and reorders the free
// vertices by the first ordering, in lexicographic order, that survives
// the connectivity and edge-count dominance rules.
func Canonical(s *Schedule) (*Schedule, error) {
	front, err := MoveMarkedToFront(s)
	if err != nil {
		return nil, err
	}

	var first []int
	newOrdering(front.m).walk(func(order []int) bool {
		first = order
		return false
	})
	if first == nil {
		return nil, ErrNoValidOrdering
	}

	m, err := front.m.Permute(first)
	if err != nil {
		return nil, err
	}
	return &Schedule{m: m}, nil
}

// Orderings returns every surviving canonical ordering of s, in
// lexicographic order of the free vertices. The first entry equals
// Canonical(s).
func Orderings(s *Schedule) ([]*Schedule, error) {
	front, err := MoveMarkedToFront(s)
	if err != nil {
		return nil, err
	}

	var out []*Schedule
	var permErr error
	newOrdering(front.m).walk(func(order []int) bool {
		m, err := front.m.Permute(order)
		if err != nil {
			permErr = err
			return false
		}
		out = append(out, &Schedule{m: m})
		return true
	})
	if permErr != nil {
		return nil, permErr
	}
	if len(out) == 0 {
		return nil, ErrNoValidOrdering
	}
	return out, nil
}

// ordering enumerates placements of vertices 2..n-1 depth first. Trying
// candidates in ascending order at every stage visits surviving
// permutations in lexicographic order; a rejected prefix prunes every
// permutation that extends it.
type ordering struct {
	m      *matrix.Matrix
	n      int
	order  []int
	placed []bool
}

func newOrdering(m *matrix.Matrix) *ordering {
	n := m.Size()
	o := &ordering{
		m:      m,
		n:      n,
		order:  make([]int, 0, n),
		placed: make([]bool, n),
	}
	o.order = append(o.order, 0, 1)
	o.placed[0], o.placed[1] = true, true
	return o
}

// walk calls visit with each surviving ordering until visit returns false
func (o *ordering) walk(visit func(order []int) bool) {
	o.place(2, visit)
}

func (o *ordering) place(stage int, visit func(order []int) bool) bool {
	if stage == o.n {
		out := make([]int, o.n)
		copy(out, o.order)
		return visit(out)
	}

	for v := 2; v < o.n; v++ {
		if o.placed[v] || !o.admissible(v, stage) {
			continue
		}
		o.placed[v] = true
		o.order = append(o.order, v)
		more := o.place(stage+1, visit)
		o.order = o.order[:len(o.order)-1]
		o.placed[v] = false
		if !more {
			return false
		}
	}
	return true
}

// admissible applies both pruning rules to placing v at stage
func (o *ordering) admissible(v, stage int) bool {
	links := o.linksIntoPrefix(v)
	if links == 0 {
		return false
	}
	if stage == o.n-1 {
		return true
	}
	for x := 2; x < o.n; x++ {
		if x == v || o.placed[x] {
			continue
		}
		if o.linksIntoPrefix(x) > links {
			return false
		}
	}
	return true
}

func (o *ordering) linksIntoPrefix(v int) int {
	count := 0
	for _, u := range o.order {
		if adjacent(o.m, u, v) {
			count++
		}
	}
	return count
}

func adjacent(m *matrix.Matrix, u, v int) bool {
	return m.At(u, v) != matrix.None || m.At(v, u) != matrix.None
}
