package schemas

import "time"

// TaskNode describes one DAG vertex as a schedulable task
type TaskNode struct {
	VertexID         int     `json:"vertex_id"`
	Dependencies     []int   `json:"dependencies"`      // direct predecessors
	EstimatedCost    float64 `json:"estimated_cost"`    // abstract time units
	RequiredMemory   int     `json:"required_memory"`   // MB
	RequiredCores    int     `json:"required_cores"`
	AlternativePaths []int   `json:"alternative_paths,omitempty"`
}

// ExecutionPlan is an ordered list of stages whose tasks may run concurrently
type ExecutionPlan struct {
	Stages             [][]TaskNode `json:"stages"`
	TotalEstimatedTime float64      `json:"total_estimated_time"`
	PeakMemoryUsage    float64      `json:"peak_memory_usage"`
	MaxParallelTasks   int          `json:"max_parallel_tasks"`
	OptimizationNotes  []string     `json:"optimization_notes,omitempty"`
}

// PlanAnalysis scores a plan against its constraints
type PlanAnalysis struct {
	EfficiencyScore        float64            `json:"efficiency_score"`
	Bottlenecks            []string           `json:"bottlenecks,omitempty"`
	ImprovementSuggestions []string           `json:"improvement_suggestions,omitempty"`
	ResourceUtilization    map[string]float64 `json:"resource_utilization"`
}

// PerformanceMetrics is the analyzer's coarse estimate for a DAG
type PerformanceMetrics struct {
	EstimatedExecutionTime   float64      `json:"estimated_execution_time"`
	ParallelizationPotential float64      `json:"parallelization_potential"`
	CriticalPathLength       int          `json:"critical_path_length"`
	Bottlenecks              []Bottleneck `json:"bottlenecks,omitempty"`
}

// Bottleneck is a vertex whose degree exceeds half the vertex count
type Bottleneck struct {
	Vertex int `json:"vertex"`
	Degree int `json:"degree"`
}

// Suggestion is a heuristic optimization hint
type Suggestion struct {
	Type             string  `json:"type"` // Parallelization or Bottleneck
	Description      string  `json:"description"`
	ImpactScore      float64 `json:"impact_score"`
	AffectedVertices []int   `json:"affected_vertices"`
}

// GraphStats summarizes DAG structure
type GraphStats struct {
	Vertices int     `json:"vertices"`
	Edges    int     `json:"edges"`
	Density  float64 `json:"density"`
	Degrees  []int   `json:"degrees"`
}

// CompileResult is everything produced for one pattern
type CompileResult struct {
	Name        string    `json:"name"`
	CompiledAt  time.Time `json:"compiled_at"`
	PatternSize int       `json:"pattern_size"`

	// Canonical schedules, one matrix per emitted orientation
	Schedules [][][]int `json:"schedules"`

	// Dependency DAG and its analysis
	DAG          [][]int             `json:"dag"`
	Stats        GraphStats          `json:"stats"`
	Levels       [][]int             `json:"levels"`
	CriticalPath []int               `json:"critical_path"`
	Performance  *PerformanceMetrics `json:"performance"`
	Suggestions  []Suggestion        `json:"suggestions,omitempty"`

	// Generated source fragments
	Code []string `json:"code"`

	// Execution plan
	Plan         *ExecutionPlan `json:"plan"`
	PlanAnalysis *PlanAnalysis  `json:"plan_analysis"`
	PlanValid    bool           `json:"plan_valid"`
	PlanErrors   []string       `json:"plan_errors,omitempty"`
}
