// Package analysis computes structural and scheduling properties of a
// dependency DAG.
package analysis

import (
	"errors"
	"fmt"

	"github.com/chicogong/pattern-planner/pkg/dag"
	"github.com/chicogong/pattern-planner/pkg/schemas"
)

var (
	// ErrNotDAG is returned when an algorithm that assumes acyclicity meets a cycle
	ErrNotDAG = errors.New("graph contains a cycle")

	// ErrInvalidVertex is returned for vertex ids outside the graph
	ErrInvalidVertex = errors.New("invalid vertex")
)

// Analyzer answers graph queries over one DAG. Adjacency lists are built
// once at construction; the DAG itself is not retained.
type Analyzer struct {
	n        int
	outgoing [][]int
	incoming [][]int
	edges    int
}

// New builds an Analyzer. Every cell with a value above zero is an edge.
func New(d *dag.DAG) *Analyzer {
	n := d.Size()
	a := &Analyzer{
		n:        n,
		outgoing: make([][]int, n),
		incoming: make([][]int, n),
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if d.At(i, j) > 0 {
				a.outgoing[i] = append(a.outgoing[i], j)
				a.incoming[j] = append(a.incoming[j], i)
				a.edges++
			}
		}
	}

	return a
}

// VertexCount returns the number of vertices
func (a *Analyzer) VertexCount() int {
	return a.n
}

// EdgeCount returns the number of directed edges
func (a *Analyzer) EdgeCount() int {
	return a.edges
}

// Density returns 2e / (v(v-1)), or 0 for graphs with fewer than two vertices
func (a *Analyzer) Density() float64 {
	if a.n < 2 {
		return 0
	}
	return 2 * float64(a.edges) / float64(a.n*(a.n-1))
}

// Degrees returns in-degree plus out-degree per vertex
func (a *Analyzer) Degrees() []int {
	out := make([]int, a.n)
	for v := 0; v < a.n; v++ {
		out[v] = len(a.incoming[v]) + len(a.outgoing[v])
	}
	return out
}

// InDegrees returns the in-degree of every vertex
func (a *Analyzer) InDegrees() []int {
	out := make([]int, a.n)
	for v := range a.incoming {
		out[v] = len(a.incoming[v])
	}
	return out
}

// OutDegrees returns the out-degree of every vertex
func (a *Analyzer) OutDegrees() []int {
	out := make([]int, a.n)
	for v := range a.outgoing {
		out[v] = len(a.outgoing[v])
	}
	return out
}

// Stats summarizes the graph for reports
func (a *Analyzer) Stats() schemas.GraphStats {
	return schemas.GraphStats{
		Vertices: a.n,
		Edges:    a.edges,
		Density:  a.Density(),
		Degrees:  a.Degrees(),
	}
}

// Successors returns the direct successors of v in ascending order
func (a *Analyzer) Successors(v int) ([]int, error) {
	if err := a.checkVertex(v); err != nil {
		return nil, err
	}
	return append([]int(nil), a.outgoing[v]...), nil
}

// Predecessors returns the direct predecessors of v in ascending order
func (a *Analyzer) Predecessors(v int) ([]int, error) {
	if err := a.checkVertex(v); err != nil {
		return nil, err
	}
	return append([]int(nil), a.incoming[v]...), nil
}

// DependencyMap maps every vertex to its direct predecessors
func (a *Analyzer) DependencyMap() map[int][]int {
	deps := make(map[int][]int, a.n)
	for v := 0; v < a.n; v++ {
		deps[v] = append([]int{}, a.incoming[v]...)
	}
	return deps
}

// DetectCycles checks if the graph contains any cycles using DFS
func (a *Analyzer) DetectCycles() error {
	visited := make([]bool, a.n)
	recStack := make([]bool, a.n)

	for v := 0; v < a.n; v++ {
		if !visited[v] {
			if err := a.dfsCheckCycle(v, visited, recStack); err != nil {
				return err
			}
		}
	}

	return nil
}

func (a *Analyzer) dfsCheckCycle(v int, visited, recStack []bool) error {
	visited[v] = true
	recStack[v] = true

	for _, w := range a.outgoing[v] {
		if !visited[w] {
			if err := a.dfsCheckCycle(w, visited, recStack); err != nil {
				return err
			}
		} else if recStack[w] {
			// Back edge
			return fmt.Errorf("%w: back edge %d -> %d", ErrNotDAG, v, w)
		}
	}

	recStack[v] = false
	return nil
}

func (a *Analyzer) checkVertex(v int) error {
	if v < 0 || v >= a.n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidVertex, v, a.n)
	}
	return nil
}
