package planner

import (
	"fmt"
	"sort"

	"github.com/chicogong/pattern-planner/pkg/analysis"
	"github.com/chicogong/pattern-planner/pkg/schemas"
)

const (
	// A task costing more than this share of the plan is worth replacing
	expensiveShare = 0.2
	// An alternative must cost less than this share of the task it replaces
	alternativeShare = 0.6
)

// Optimization notes
const (
	NoteParallelLimit = "Warning: Plan exceeds maximum parallel task limit"
	NoteMemoryLimit   = "Warning: Plan exceeds maximum memory limit"
)

// GeneratePlan stages tasks by execution level
func (p *Planner) GeneratePlan() *schemas.ExecutionPlan {
	plan := &schemas.ExecutionPlan{Stages: make([][]schemas.TaskNode, 0, len(p.levels))}
	for _, level := range p.levels {
		stage := make([]schemas.TaskNode, 0, len(level))
		for _, v := range level {
			stage = append(stage, p.task(v))
		}
		plan.Stages = append(plan.Stages, stage)
	}
	computeMetrics(plan)
	return plan
}

// GenerateOptimizedPlan orders the first stage by descending cost, then
// splits stages until they fit the constraints. Notes record any limit the
// result still exceeds.
func (p *Planner) GenerateOptimizedPlan() *schemas.ExecutionPlan {
	plan := p.GeneratePlan()

	if len(plan.Stages) > 0 {
		sortByCostDesc(plan.Stages[0])
	}
	p.BalanceResources(plan)

	c := p.constraints
	if c.MaxParallelTasks > 0 && plan.MaxParallelTasks > c.MaxParallelTasks {
		plan.OptimizationNotes = append(plan.OptimizationNotes, NoteParallelLimit)
	}
	if c.MaxMemoryMB > 0 && plan.PeakMemoryUsage > float64(c.MaxMemoryMB) {
		plan.OptimizationNotes = append(plan.OptimizationNotes, NoteMemoryLimit)
	}

	return plan
}

// BalanceResources splits, in place, every stage that exceeds the memory,
// core or parallelism limits. Stage order is preserved.
func (p *Planner) BalanceResources(plan *schemas.ExecutionPlan) {
	c := limits(p.constraints)

	stages := make([][]schemas.TaskNode, 0, len(plan.Stages))
	for _, stage := range plan.Stages {
		if c.fitsStage(stage) {
			stages = append(stages, stage)
			continue
		}
		stages = append(stages, split(stage, c)...)
	}

	plan.Stages = stages
	computeMetrics(plan)
}

func (c limits) fitsStage(stage []schemas.TaskNode) bool {
	if c.MaxParallelTasks > 0 && len(stage) > c.MaxParallelTasks {
		return false
	}
	if c.MaxMemoryMB > 0 && stageMemory(stage) > c.MaxMemoryMB {
		return false
	}
	if c.MaxCPUCores > 0 && stageCores(stage) > c.MaxCPUCores {
		return false
	}
	return true
}

// OptimizeForTime orders each stage by descending cost and replaces
// expensive tasks with a much cheaper alternative where one is listed
func (p *Planner) OptimizeForTime() *schemas.ExecutionPlan {
	plan := p.GeneratePlan()
	total := plan.TotalEstimatedTime

	for _, stage := range plan.Stages {
		sortByCostDesc(stage)

		for i := range stage {
			task := stage[i]
			if task.EstimatedCost <= total*expensiveShare {
				continue
			}
			for _, alt := range task.AlternativePaths {
				if p.tasks[alt].EstimatedCost < task.EstimatedCost*alternativeShare {
					stage[i] = p.task(alt)
					plan.OptimizationNotes = append(plan.OptimizationNotes,
						fmt.Sprintf("Replaced task %d with alternative %d", task.VertexID, alt))
					break
				}
			}
		}
	}

	computeMetrics(plan)
	return plan
}

// OptimizeForMemory orders each stage by ascending memory and splits stages
// above the memory ceiling
func (p *Planner) OptimizeForMemory() *schemas.ExecutionPlan {
	plan := p.GeneratePlan()
	memoryOnly := limits{MaxMemoryMB: p.constraints.MaxMemoryMB}

	stages := make([][]schemas.TaskNode, 0, len(plan.Stages))
	for _, stage := range plan.Stages {
		sort.SliceStable(stage, func(i, j int) bool {
			return stage[i].RequiredMemory < stage[j].RequiredMemory
		})
		if memoryOnly.fitsStage(stage) {
			stages = append(stages, stage)
			continue
		}
		stages = append(stages, split(stage, memoryOnly)...)
	}

	plan.Stages = stages
	computeMetrics(plan)
	return plan
}

// OptimizeForParallelism rebuilds the stages by simulation: every round
// packs the ready tasks, in vertex order, under the core and parallelism
// limits. A task that needs more cores than the limit runs alone.
func (p *Planner) OptimizeForParallelism() (*schemas.ExecutionPlan, error) {
	c := p.constraints
	plan := &schemas.ExecutionPlan{Stages: [][]schemas.TaskNode{}}
	completed := make([]bool, len(p.tasks))
	done := 0

	for done < len(p.tasks) {
		ready := p.readyAfter(completed)
		if len(ready) == 0 {
			return nil, fmt.Errorf("%w: %d tasks can never become ready", analysis.ErrNotDAG, len(p.tasks)-done)
		}

		stage := []schemas.TaskNode{}
		cores := 0
		for _, v := range ready {
			t := p.tasks[v]
			if c.MaxParallelTasks > 0 && len(stage) >= c.MaxParallelTasks {
				break
			}
			if c.MaxCPUCores > 0 && cores+t.RequiredCores > c.MaxCPUCores {
				continue
			}
			stage = append(stage, p.task(v))
			cores += t.RequiredCores
		}

		if len(stage) == 0 {
			t := p.tasks[ready[0]]
			stage = append(stage, p.task(ready[0]))
			plan.OptimizationNotes = append(plan.OptimizationNotes,
				fmt.Sprintf("Task %d needs %d cores, above the limit of %d; scheduled alone", t.VertexID, t.RequiredCores, c.MaxCPUCores))
		}

		for _, t := range stage {
			completed[t.VertexID] = true
			done++
		}
		plan.Stages = append(plan.Stages, stage)
	}

	computeMetrics(plan)
	return plan, nil
}

// readyAfter lists incomplete tasks whose dependencies are all complete
func (p *Planner) readyAfter(completed []bool) []int {
	ready := []int{}
	for v, t := range p.tasks {
		if completed[v] {
			continue
		}
		met := true
		for _, dep := range t.Dependencies {
			if !completed[dep] {
				met = false
				break
			}
		}
		if met {
			ready = append(ready, v)
		}
	}
	return ready
}

func sortByCostDesc(stage []schemas.TaskNode) {
	sort.SliceStable(stage, func(i, j int) bool {
		return stage[i].EstimatedCost > stage[j].EstimatedCost
	})
}
