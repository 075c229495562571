package schedule

import (
	"sort"

	"github.com/chicogong/pattern-planner/pkg/matrix"
)

// IsIsomorphic reports whether some relabeling p of a's vertices gives
// a.At(i, j) == b.At(p[i], p[j]) for every cell. Cell values must match
// exactly, so a marked edge only maps onto a marked edge.
func IsIsomorphic(a, b *matrix.Matrix) bool {
	if a == nil || b == nil || a.Size() != b.Size() {
		return false
	}
	if !sameSignatures(a, b) {
		return false
	}
	return newMatcher(a, b).solve(nil)
}

// IsColorSymmetric reports whether the roles of the two marked vertices can
// be exchanged: some relabeling maps the marked pair onto itself swapped
// and leaves the matrix unchanged.
func IsColorSymmetric(s *Schedule) (bool, error) {
	a, b, err := s.MarkedPair()
	if err != nil {
		return false, err
	}
	return newMatcher(s.m, s.m).solve(map[int]int{a: b, b: a}), nil
}

// signature summarizes a vertex by how many cells of each value its row
// and column hold
type signature [6]int

func vertexSignature(m *matrix.Matrix, v int) signature {
	var sig signature
	for k := 0; k < m.Size(); k++ {
		if k == v {
			continue
		}
		sig[m.At(v, k)]++
		sig[3+m.At(k, v)]++
	}
	return sig
}

func sameSignatures(a, b *matrix.Matrix) bool {
	n := a.Size()
	sa := make([]signature, n)
	sb := make([]signature, n)
	for v := 0; v < n; v++ {
		sa[v] = vertexSignature(a, v)
		sb[v] = vertexSignature(b, v)
	}
	less := func(s []signature) func(i, j int) bool {
		return func(i, j int) bool {
			for k := range s[i] {
				if s[i][k] != s[j][k] {
					return s[i][k] < s[j][k]
				}
			}
			return false
		}
	}
	sort.Slice(sa, less(sa))
	sort.Slice(sb, less(sb))
	for v := range sa {
		if sa[v] != sb[v] {
			return false
		}
	}
	return true
}

// matcher assigns a's vertices to b's vertices one at a time, checking
// every cell between assigned vertices as it goes.
type matcher struct {
	a, b   *matrix.Matrix
	n      int
	sigA   []signature
	sigB   []signature
	assign []int
	used   []bool
}

func newMatcher(a, b *matrix.Matrix) *matcher {
	n := a.Size()
	mt := &matcher{
		a:      a,
		b:      b,
		n:      n,
		sigA:   make([]signature, n),
		sigB:   make([]signature, n),
		assign: make([]int, n),
		used:   make([]bool, n),
	}
	for v := 0; v < n; v++ {
		mt.sigA[v] = vertexSignature(a, v)
		mt.sigB[v] = vertexSignature(b, v)
		mt.assign[v] = -1
	}
	return mt
}

func (mt *matcher) solve(fixed map[int]int) bool {
	for from, to := range fixed {
		if mt.used[to] || mt.sigA[from] != mt.sigB[to] {
			return false
		}
		mt.assign[from] = to
		mt.used[to] = true
	}
	for from := range fixed {
		if !mt.consistent(from) {
			return false
		}
	}
	return mt.extend(0)
}

func (mt *matcher) extend(v int) bool {
	if v == mt.n {
		return true
	}
	if mt.assign[v] >= 0 {
		return mt.extend(v + 1)
	}
	for w := 0; w < mt.n; w++ {
		if mt.used[w] || mt.sigA[v] != mt.sigB[w] {
			continue
		}
		mt.assign[v] = w
		mt.used[w] = true
		if mt.consistent(v) && mt.extend(v+1) {
			return true
		}
		mt.assign[v] = -1
		mt.used[w] = false
	}
	return false
}

// consistent checks every cell between v and the already-assigned vertices
func (mt *matcher) consistent(v int) bool {
	pv := mt.assign[v]
	if mt.a.At(v, v) != mt.b.At(pv, pv) {
		return false
	}
	for k := 0; k < mt.n; k++ {
		pk := mt.assign[k]
		if k == v || pk < 0 {
			continue
		}
		if mt.a.At(v, k) != mt.b.At(pv, pk) || mt.a.At(k, v) != mt.b.At(pk, pv) {
			return false
		}
	}
	return true
}
