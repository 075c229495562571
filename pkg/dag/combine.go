package dag

import (
	"github.com/chicogong/pattern-planner/pkg/matrix"
	"github.com/chicogong/pattern-planner/pkg/schedule"
)

// VertexPair is a candidate correspondence between vertex A of one DAG and
// vertex B of another
type VertexPair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Overlap returns every pair (i, j) where each relation of i to another
// vertex of a also appears somewhere in j's relations to the other
// vertices of b. This is a local similarity heuristic, not a consistent
// isomorphism: it can report pairs that no single bijection supports.
func Overlap(a, b *DAG) []VertexPair {
	var pairs []VertexPair
	for i := 0; i < a.Size(); i++ {
		for j := 0; j < b.Size(); j++ {
			if similar(a, i, b, j) {
				pairs = append(pairs, VertexPair{A: i, B: j})
			}
		}
	}
	return pairs
}

// HasOverlap reports whether Overlap would return any pair
func HasOverlap(a, b *DAG) bool {
	for i := 0; i < a.Size(); i++ {
		for j := 0; j < b.Size(); j++ {
			if similar(a, i, b, j) {
				return true
			}
		}
	}
	return false
}

func similar(a *DAG, i int, b *DAG, j int) bool {
	for k := 0; k < a.Size(); k++ {
		if k == i {
			continue
		}
		want := a.At(i, k)
		found := false
		for l := 0; l < b.Size(); l++ {
			if l != j && b.At(j, l) == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Combine merges DAGs into one. Vertices paired by Overlap across any two
// inputs share an id; every other vertex gets a fresh id. Edges are copied
// under the new ids, later writes winning. An edge whose endpoints merge
// into one id is dropped, so the result never has a self loop. Combining
// zero DAGs returns nil and combining one returns a copy.
func Combine(dags ...*DAG) (*DAG, error) {
	switch len(dags) {
	case 0:
		return nil, nil
	case 1:
		return dags[0].Copy(), nil
	}

	offsets := make([]int, len(dags))
	total := 0
	for i, d := range dags {
		offsets[i] = total
		total += d.Size()
	}

	uf := newUnionFind(total)
	for x := 0; x < len(dags); x++ {
		for y := x + 1; y < len(dags); y++ {
			for _, p := range Overlap(dags[x], dags[y]) {
				uf.union(offsets[x]+p.A, offsets[y]+p.B)
			}
		}
	}

	// ids are dense, in order of first appearance
	ids := make(map[int]int)
	newID := make([]int, total)
	for k := 0; k < total; k++ {
		root := uf.find(k)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		newID[k] = id
	}

	m, err := matrix.New(len(ids))
	if err != nil {
		return nil, err
	}
	for x, d := range dags {
		for i := 0; i < d.Size(); i++ {
			for j := 0; j < d.Size(); j++ {
				v := d.At(i, j)
				if v == matrix.None {
					continue
				}
				ni, nj := newID[offsets[x]+i], newID[offsets[x]+j]
				if ni == nj {
					// merged endpoints
					continue
				}
				m.Set(ni, nj, v)
			}
		}
	}

	combined := &DAG{m: m}
	if m.Size() >= 2 {
		s, err := schedule.New(m)
		if err != nil {
			return nil, err
		}
		combined.schedules = []*schedule.Schedule{s}
	}
	return combined, nil
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
}
