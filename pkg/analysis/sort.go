package analysis

import "fmt"

// ExecutionLevels groups vertices into levels using Kahn's algorithm.
// Vertices in the same level have no dependencies on each other, and each
// level is in ascending vertex order. A cycle leaves vertices unemitted,
// which is reported as ErrNotDAG.
func (a *Analyzer) ExecutionLevels() ([][]int, error) {
	inDegree := a.InDegrees()
	processed := make([]bool, a.n)
	done := 0

	levels := [][]int{}
	for done < a.n {
		level := []int{}

		// Everything whose dependencies have all been emitted
		for v := 0; v < a.n; v++ {
			if !processed[v] && inDegree[v] == 0 {
				level = append(level, v)
			}
		}

		if len(level) == 0 {
			return nil, fmt.Errorf("%w: emitted %d of %d vertices", ErrNotDAG, done, a.n)
		}

		levels = append(levels, level)

		for _, v := range level {
			processed[v] = true
			done++
			for _, w := range a.outgoing[v] {
				inDegree[w]--
			}
		}
	}

	return levels, nil
}

// TopologicalOrder returns the vertices in reversed DFS postorder
func (a *Analyzer) TopologicalOrder() ([]int, error) {
	if err := a.DetectCycles(); err != nil {
		return nil, err
	}

	visited := make([]bool, a.n)
	post := make([]int, 0, a.n)

	var visit func(v int)
	visit = func(v int) {
		visited[v] = true
		for _, w := range a.outgoing[v] {
			if !visited[w] {
				visit(w)
			}
		}
		post = append(post, v)
	}

	for v := 0; v < a.n; v++ {
		if !visited[v] {
			visit(v)
		}
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post, nil
}

// LongestPath returns the vertex sequence of a longest path, counted in
// edges. Ties go to the lowest-numbered end vertex.
func (a *Analyzer) LongestPath() ([]int, error) {
	order, err := a.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	if a.n == 0 {
		return []int{}, nil
	}

	dist := make([]int, a.n)
	parent := make([]int, a.n)
	for v := range parent {
		parent[v] = -1
	}

	for _, u := range order {
		for _, v := range a.outgoing[u] {
			if dist[u]+1 > dist[v] {
				dist[v] = dist[u] + 1
				parent[v] = u
			}
		}
	}

	end := 0
	for v := 1; v < a.n; v++ {
		if dist[v] > dist[end] {
			end = v
		}
	}

	path := []int{}
	for v := end; v != -1; v = parent[v] {
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// CriticalPath is the longest dependency chain; every step on it runs
// sequentially.
func (a *Analyzer) CriticalPath() ([]int, error) {
	return a.LongestPath()
}
