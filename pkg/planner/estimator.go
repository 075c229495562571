package planner

import "github.com/chicogong/pattern-planner/pkg/schemas"

// stageTime is the cost of the slowest task; tasks in a stage run concurrently
func stageTime(stage []schemas.TaskNode) float64 {
	longest := 0.0
	for _, t := range stage {
		if t.EstimatedCost > longest {
			longest = t.EstimatedCost
		}
	}
	return longest
}

func stageMemory(stage []schemas.TaskNode) int {
	total := 0
	for _, t := range stage {
		total += t.RequiredMemory
	}
	return total
}

func stageCores(stage []schemas.TaskNode) int {
	total := 0
	for _, t := range stage {
		total += t.RequiredCores
	}
	return total
}

// computeMetrics recomputes the plan aggregates from its stages
func computeMetrics(plan *schemas.ExecutionPlan) {
	plan.TotalEstimatedTime = 0
	plan.PeakMemoryUsage = 0
	plan.MaxParallelTasks = 0

	for _, stage := range plan.Stages {
		// Stages run sequentially
		plan.TotalEstimatedTime += stageTime(stage)

		if mem := float64(stageMemory(stage)); mem > plan.PeakMemoryUsage {
			plan.PeakMemoryUsage = mem
		}
		if len(stage) > plan.MaxParallelTasks {
			plan.MaxParallelTasks = len(stage)
		}
	}
}

// fits reports whether adding t to a stage with the given usage stays
// within every bounded constraint
func (c limits) fits(tasks, memory, cores int, t schemas.TaskNode) bool {
	if c.MaxParallelTasks > 0 && tasks+1 > c.MaxParallelTasks {
		return false
	}
	if c.MaxMemoryMB > 0 && memory+t.RequiredMemory > c.MaxMemoryMB {
		return false
	}
	if c.MaxCPUCores > 0 && cores+t.RequiredCores > c.MaxCPUCores {
		return false
	}
	return true
}

type limits ResourceConstraints

// split packs a stage greedily, in order, into stages accepted by fits.
// A task that fits nowhere gets a stage of its own.
func split(stage []schemas.TaskNode, c limits) [][]schemas.TaskNode {
	out := [][]schemas.TaskNode{}
	var current []schemas.TaskNode
	memory, cores := 0, 0

	for _, t := range stage {
		if len(current) > 0 && !c.fits(len(current), memory, cores, t) {
			out = append(out, current)
			current = nil
			memory, cores = 0, 0
		}
		current = append(current, t)
		memory += t.RequiredMemory
		cores += t.RequiredCores
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}
