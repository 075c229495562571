package planner

import (
	"fmt"
	"strings"

	"github.com/chicogong/pattern-planner/pkg/schemas"
)

const (
	bottleneckShare = 0.2
	memoryWarnShare = 0.9
)

// Plan analysis suggestions
const (
	SuggestMoreParallelism = "Consider increasing parallelism"
	SuggestMemoryPressure  = "Memory usage is close to limit"
)

// ValidateDependencies reports whether every task's dependencies run in a
// strictly earlier stage
func (p *Planner) ValidateDependencies(plan *schemas.ExecutionPlan) bool {
	completed := make(map[int]bool)

	for _, stage := range plan.Stages {
		for _, t := range stage {
			for _, dep := range t.Dependencies {
				if !completed[dep] {
					return false
				}
			}
		}
		for _, t := range stage {
			completed[t.VertexID] = true
		}
	}

	return true
}

// ValidateResourceRequirements checks the plan aggregates against the
// constraints and lists every violation
func (p *Planner) ValidateResourceRequirements(plan *schemas.ExecutionPlan) error {
	c := p.constraints
	var violations []string

	if c.MaxParallelTasks > 0 && plan.MaxParallelTasks > c.MaxParallelTasks {
		violations = append(violations, fmt.Sprintf("parallel tasks %d exceed limit %d", plan.MaxParallelTasks, c.MaxParallelTasks))
	}
	if c.MaxMemoryMB > 0 && plan.PeakMemoryUsage > float64(c.MaxMemoryMB) {
		violations = append(violations, fmt.Sprintf("peak memory %.0fMB exceeds limit %dMB", plan.PeakMemoryUsage, c.MaxMemoryMB))
	}
	if c.MaxExecutionTime > 0 && plan.TotalEstimatedTime > c.MaxExecutionTime {
		violations = append(violations, fmt.Sprintf("estimated time %.2f exceeds limit %.2f", plan.TotalEstimatedTime, c.MaxExecutionTime))
	}

	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrResourceConstraint, strings.Join(violations, "; "))
	}
	return nil
}

// AnalyzePlan scores the plan against an ideal spread of all task cost
// over the parallelism limit
func (p *Planner) AnalyzePlan(plan *schemas.ExecutionPlan) *schemas.PlanAnalysis {
	c := p.constraints
	result := &schemas.PlanAnalysis{ResourceUtilization: map[string]float64{}}

	ideal := 0.0
	for _, t := range p.tasks {
		ideal += t.EstimatedCost
	}
	if c.MaxParallelTasks > 0 {
		ideal /= float64(c.MaxParallelTasks)
	}

	actual := plan.TotalEstimatedTime
	if actual > 0 {
		result.EfficiencyScore = ideal / actual
	}

	for i, stage := range plan.Stages {
		if stageTime(stage) > actual*bottleneckShare {
			result.Bottlenecks = append(result.Bottlenecks, fmt.Sprintf("Stage %d is a bottleneck", i))
		}
	}

	if plan.MaxParallelTasks < c.MaxParallelTasks {
		result.ImprovementSuggestions = append(result.ImprovementSuggestions, SuggestMoreParallelism)
	}
	if c.MaxMemoryMB > 0 && plan.PeakMemoryUsage > float64(c.MaxMemoryMB)*memoryWarnShare {
		result.ImprovementSuggestions = append(result.ImprovementSuggestions, SuggestMemoryPressure)
	}

	if c.MaxParallelTasks > 0 {
		result.ResourceUtilization["CPU"] = float64(plan.MaxParallelTasks) / float64(c.MaxParallelTasks)
	}
	if c.MaxMemoryMB > 0 {
		result.ResourceUtilization["Memory"] = plan.PeakMemoryUsage / float64(c.MaxMemoryMB)
	}

	return result
}
