package schemas

import (
	"fmt"
	"time"
)

// PatternSpec is the user-submitted pattern compilation request
type PatternSpec struct {
	// Metadata
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`

	// Pattern, either inline or loaded from Source
	Size      int    `json:"size"`
	Adjacency string `json:"adjacency,omitempty"` // row-major ASCII, '1' edge, '2' marked edge
	Source    string `json:"source,omitempty"`    // URI of a file holding the adjacency buffer

	// Compilation
	Options *CompileOptions `json:"options,omitempty"`
	Timeout *Duration       `json:"timeout,omitempty"`

	// Artifact destinations
	Outputs []Output `json:"outputs,omitempty"`
}

// Artifact kinds written by the exporter
const (
	ArtifactCode   = "code"
	ArtifactPlan   = "plan"
	ArtifactResult = "result"
)

// Output is an artifact destination
type Output struct {
	Kind        string `json:"kind"` // code, plan or result
	Destination string `json:"destination"`
}

// Plan strategies
const (
	StrategyDefault     = "default"
	StrategyOptimized   = "optimized"
	StrategyTime        = "time"
	StrategyMemory      = "memory"
	StrategyParallelism = "parallelism"
)

// DAG construction modes
const (
	CombineUnion   = "union"   // one DAG over all schedules
	CombineOverlap = "combine" // one DAG per schedule, merged by overlap
)

// CompileOptions tunes the pipeline stages
type CompileOptions struct {
	Strategy    string               `json:"strategy,omitempty"`
	CombineMode string               `json:"combine_mode,omitempty"`
	Codegen     *CodegenOptions      `json:"codegen,omitempty"`
	Constraints *ResourceConstraints `json:"constraints,omitempty"`
}

// CodegenOptions mirrors the code generator configuration on the wire
type CodegenOptions struct {
	EnableOptimization bool   `json:"enable_optimization"`
	EnableParallel     bool   `json:"enable_parallel"`
	EnableCaching      bool   `json:"enable_caching"`
	MaxParallelBlocks  int    `json:"max_parallel_blocks"`
	OptimizationLevel  int    `json:"optimization_level"`
	Operator           string `json:"operator,omitempty"`
}

// ResourceConstraints bounds an execution plan
type ResourceConstraints struct {
	MaxParallelTasks int     `json:"max_parallel_tasks"`
	MaxMemoryMB      int     `json:"max_memory_mb"`
	MaxCPUCores      int     `json:"max_cpu_cores"`
	MaxExecutionTime float64 `json:"max_execution_time"` // 0 means unbounded
}

// Validate checks the fields that do not need the pattern itself
func (s *PatternSpec) Validate() error {
	if s.Adjacency == "" && s.Source == "" {
		return fmt.Errorf("pattern needs an adjacency buffer or a source URI")
	}
	if s.Adjacency != "" && s.Source != "" {
		return fmt.Errorf("adjacency and source are mutually exclusive")
	}

	if s.Options != nil {
		switch s.Options.Strategy {
		case "", StrategyDefault, StrategyOptimized, StrategyTime, StrategyMemory, StrategyParallelism:
		default:
			return fmt.Errorf("unknown plan strategy '%s'", s.Options.Strategy)
		}
		switch s.Options.CombineMode {
		case "", CombineUnion, CombineOverlap:
		default:
			return fmt.Errorf("unknown combine mode '%s'", s.Options.CombineMode)
		}
	}

	seen := make(map[string]bool)
	for i, out := range s.Outputs {
		switch out.Kind {
		case ArtifactCode, ArtifactPlan, ArtifactResult:
		default:
			return fmt.Errorf("output %d: unknown artifact kind '%s'", i, out.Kind)
		}
		if seen[out.Destination] {
			return fmt.Errorf("output %d: duplicate destination %s", i, out.Destination)
		}
		seen[out.Destination] = true
	}

	return nil
}
