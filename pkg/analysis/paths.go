package analysis

import (
	"math"
	"sort"
)

// Unreachable is the distance reported for vertices BFS cannot reach
const Unreachable = math.MaxInt

// ShortestDistances returns unit-weight BFS distances from source
func (a *Analyzer) ShortestDistances(source int) ([]int, error) {
	if err := a.checkVertex(source); err != nil {
		return nil, err
	}

	dist := make([]int, a.n)
	for v := range dist {
		dist[v] = Unreachable
	}
	dist[source] = 0

	queue := []int{source}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range a.outgoing[u] {
			if dist[v] == Unreachable {
				dist[v] = dist[u] + 1
				queue = append(queue, v)
			}
		}
	}

	return dist, nil
}

// StronglyConnectedComponents runs Kosaraju's algorithm. Components are
// sorted internally and ordered by their smallest vertex.
func (a *Analyzer) StronglyConnectedComponents() [][]int {
	visited := make([]bool, a.n)
	finish := make([]int, 0, a.n)

	var forward func(v int)
	forward = func(v int) {
		visited[v] = true
		for _, w := range a.outgoing[v] {
			if !visited[w] {
				forward(w)
			}
		}
		finish = append(finish, v)
	}
	for v := 0; v < a.n; v++ {
		if !visited[v] {
			forward(v)
		}
	}

	for v := range visited {
		visited[v] = false
	}

	var backward func(v int, comp *[]int)
	backward = func(v int, comp *[]int) {
		visited[v] = true
		*comp = append(*comp, v)
		for _, w := range a.incoming[v] {
			if !visited[w] {
				backward(w, comp)
			}
		}
	}

	components := [][]int{}
	for i := len(finish) - 1; i >= 0; i-- {
		v := finish[i]
		if visited[v] {
			continue
		}
		comp := []int{}
		backward(v, &comp)
		sort.Ints(comp)
		components = append(components, comp)
	}

	sort.Slice(components, func(i, j int) bool {
		return components[i][0] < components[j][0]
	})
	return components
}

// IsStronglyConnected reports whether every vertex reaches every other
func (a *Analyzer) IsStronglyConnected() bool {
	return len(a.StronglyConnectedComponents()) == 1
}

// FindCycles returns one vertex sequence per back edge found by DFS. A
// back edge u -> v yields the cycle v, ..., u.
func (a *Analyzer) FindCycles() [][]int {
	visited := make([]bool, a.n)
	onPath := make([]bool, a.n)
	parent := make([]int, a.n)
	for v := range parent {
		parent[v] = -1
	}

	cycles := [][]int{}

	var visit func(u int)
	visit = func(u int) {
		visited[u] = true
		onPath[u] = true
		for _, v := range a.outgoing[u] {
			if onPath[v] {
				cycle := []int{}
				for x := u; x != v; x = parent[x] {
					cycle = append(cycle, x)
				}
				cycle = append(cycle, v)
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				cycles = append(cycles, cycle)
				continue
			}
			if !visited[v] {
				parent[v] = u
				visit(v)
			}
		}
		onPath[u] = false
	}

	for v := 0; v < a.n; v++ {
		if !visited[v] {
			visit(v)
		}
	}

	return cycles
}
