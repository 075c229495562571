// Package planner stages DAG vertices into resource-bounded execution plans.
package planner

import (
	"errors"
	"fmt"

	"github.com/chicogong/pattern-planner/pkg/analysis"
	"github.com/chicogong/pattern-planner/pkg/dag"
	"github.com/chicogong/pattern-planner/pkg/schemas"
)

// ErrResourceConstraint is returned when a plan exceeds its constraints
var ErrResourceConstraint = errors.New("plan violates resource constraints")

// ResourceConstraints bounds a plan. A zero limit is unbounded.
type ResourceConstraints = schemas.ResourceConstraints

const (
	defaultTaskMemoryMB = 1024
	defaultTaskCores    = 1
)

// DefaultConstraints returns the limits used when none are configured
func DefaultConstraints() ResourceConstraints {
	return ResourceConstraints{
		MaxParallelTasks: 4,
		MaxMemoryMB:      8192,
		MaxCPUCores:      4,
	}
}

// Option customizes task descriptors
type Option func(*options)

type options struct {
	memoryMB     int
	cores        int
	costs        map[int]float64
	alternatives map[int][]int
}

// WithTaskDefaults sets the memory and core requirement of every task
func WithTaskDefaults(memoryMB, cores int) Option {
	return func(o *options) {
		o.memoryMB = memoryMB
		o.cores = cores
	}
}

// WithTaskCost overrides the estimated cost of one vertex
func WithTaskCost(vertex int, cost float64) Option {
	return func(o *options) {
		o.costs[vertex] = cost
	}
}

// WithAlternatives lists cheaper substitutes for a vertex
func WithAlternatives(vertex int, alternatives ...int) Option {
	return func(o *options) {
		o.alternatives[vertex] = append([]int(nil), alternatives...)
	}
}

// Planner creates execution plans for one DAG
type Planner struct {
	analyzer    *analysis.Analyzer
	constraints ResourceConstraints
	tasks       []schemas.TaskNode
	levels      [][]int
}

// New analyzes d and builds one task descriptor per vertex. Every task
// gets the same share of the estimated execution time unless overridden.
func New(d *dag.DAG, constraints ResourceConstraints, opts ...Option) (*Planner, error) {
	o := &options{
		memoryMB:     defaultTaskMemoryMB,
		cores:        defaultTaskCores,
		costs:        make(map[int]float64),
		alternatives: make(map[int][]int),
	}
	for _, opt := range opts {
		opt(o)
	}

	a := analysis.New(d)

	levels, err := a.ExecutionLevels()
	if err != nil {
		return nil, fmt.Errorf("failed to compute execution levels: %w", err)
	}
	metrics, err := a.EstimatePerformance()
	if err != nil {
		return nil, fmt.Errorf("failed to estimate performance: %w", err)
	}

	n := a.VertexCount()
	for v := range o.costs {
		if v < 0 || v >= n {
			return nil, fmt.Errorf("task cost override: %w: %d", analysis.ErrInvalidVertex, v)
		}
	}
	for v, alts := range o.alternatives {
		for _, alt := range append([]int{v}, alts...) {
			if alt < 0 || alt >= n {
				return nil, fmt.Errorf("alternatives of %d: %w: %d", v, analysis.ErrInvalidVertex, alt)
			}
		}
	}

	cost := 0.0
	if n > 0 {
		cost = metrics.EstimatedExecutionTime / float64(n)
	}

	deps := a.DependencyMap()
	tasks := make([]schemas.TaskNode, n)
	for v := 0; v < n; v++ {
		tasks[v] = schemas.TaskNode{
			VertexID:         v,
			Dependencies:     deps[v],
			EstimatedCost:    cost,
			RequiredMemory:   o.memoryMB,
			RequiredCores:    o.cores,
			AlternativePaths: o.alternatives[v],
		}
		if c, ok := o.costs[v]; ok {
			tasks[v].EstimatedCost = c
		}
	}

	return &Planner{
		analyzer:    a,
		constraints: constraints,
		tasks:       tasks,
		levels:      levels,
	}, nil
}

// Constraints returns the current resource constraints
func (p *Planner) Constraints() ResourceConstraints {
	return p.constraints
}

// UpdateResourceConstraints replaces the constraints used by later calls
func (p *Planner) UpdateResourceConstraints(c ResourceConstraints) {
	p.constraints = c
}

// Tasks returns a copy of every task descriptor in vertex order
func (p *Planner) Tasks() []schemas.TaskNode {
	out := make([]schemas.TaskNode, len(p.tasks))
	for i := range p.tasks {
		out[i] = p.task(i)
	}
	return out
}

// ReadyTasks returns the tasks without dependencies
func (p *Planner) ReadyTasks() []schemas.TaskNode {
	out := []schemas.TaskNode{}
	for i := range p.tasks {
		if len(p.tasks[i].Dependencies) == 0 {
			out = append(out, p.task(i))
		}
	}
	return out
}

// CriticalPath returns the tasks on the DAG's longest dependency chain
func (p *Planner) CriticalPath() []schemas.TaskNode {
	path, err := p.analyzer.CriticalPath()
	if err != nil {
		// acyclicity was checked in New
		return nil
	}
	out := make([]schemas.TaskNode, 0, len(path))
	for _, v := range path {
		out = append(out, p.task(v))
	}
	return out
}

// task returns a deep copy of task v
func (p *Planner) task(v int) schemas.TaskNode {
	t := p.tasks[v]
	t.Dependencies = append([]int{}, t.Dependencies...)
	if t.AlternativePaths != nil {
		t.AlternativePaths = append([]int(nil), t.AlternativePaths...)
	}
	return t
}
