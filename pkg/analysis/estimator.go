package analysis

import (
	"fmt"

	"github.com/chicogong/pattern-planner/pkg/schemas"
)

// Suggestion types
const (
	SuggestParallelization = "Parallelization"
	SuggestBottleneck      = "Bottleneck"
)

const (
	complexityPerDegree = 0.1
	levelImpactPerTask  = 0.1
	bottleneckImpact    = 0.8
)

// Bottlenecks returns vertices whose degree exceeds half the vertex count
// (integer division), in vertex order
func (a *Analyzer) Bottlenecks() []schemas.Bottleneck {
	half := a.n / 2
	out := []schemas.Bottleneck{}
	for v, deg := range a.Degrees() {
		if deg > half {
			out = append(out, schemas.Bottleneck{Vertex: v, Degree: deg})
		}
	}
	return out
}

// EstimatePerformance produces a coarse cost model: the critical path
// length scaled by the complexity score of the path's first vertex
func (a *Analyzer) EstimatePerformance() (*schemas.PerformanceMetrics, error) {
	path, err := a.CriticalPath()
	if err != nil {
		return nil, fmt.Errorf("failed to compute critical path: %w", err)
	}
	levels, err := a.ExecutionLevels()
	if err != nil {
		return nil, fmt.Errorf("failed to compute execution levels: %w", err)
	}

	metrics := &schemas.PerformanceMetrics{
		CriticalPathLength: len(path),
		Bottlenecks:        a.Bottlenecks(),
	}

	if len(path) > 0 {
		degrees := a.Degrees()
		complexity := 1 + complexityPerDegree*float64(degrees[path[0]])
		metrics.EstimatedExecutionTime = float64(len(path)) * complexity
	}

	if a.n > 0 {
		widest := 0
		for _, level := range levels {
			if len(level) > widest {
				widest = len(level)
			}
		}
		metrics.ParallelizationPotential = float64(widest) / float64(a.n)
	}

	return metrics, nil
}

// AnalyzeForOptimization returns heuristic hints: levels that can run in
// parallel and high-degree vertices
func (a *Analyzer) AnalyzeForOptimization() ([]schemas.Suggestion, error) {
	levels, err := a.ExecutionLevels()
	if err != nil {
		return nil, err
	}

	suggestions := []schemas.Suggestion{}

	if len(levels) > 1 {
		for i, level := range levels {
			if len(level) <= 1 {
				continue
			}
			suggestions = append(suggestions, schemas.Suggestion{
				Type:             SuggestParallelization,
				Description:      fmt.Sprintf("Level %d can be parallelized", i),
				ImpactScore:      float64(len(level)) * levelImpactPerTask,
				AffectedVertices: append([]int(nil), level...),
			})
		}
	}

	for _, b := range a.Bottlenecks() {
		suggestions = append(suggestions, schemas.Suggestion{
			Type:             SuggestBottleneck,
			Description:      fmt.Sprintf("Vertex %d is a potential bottleneck", b.Vertex),
			ImpactScore:      bottleneckImpact,
			AffectedVertices: []int{b.Vertex},
		})
	}

	return suggestions, nil
}
