package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/chicogong/pattern-planner/pkg/codegen"
	"github.com/chicogong/pattern-planner/pkg/planner"
)

// PlannerDefaults are the compiler-wide defaults applied to specs that do
// not set their own
type PlannerDefaults struct {
	Constraints planner.ResourceConstraints
	Codegen     codegen.Config
}

// plannerFile is the HCL root. Every attribute is optional; absent ones
// keep the built-in default.
type plannerFile struct {
	Constraints *constraintsBlock `hcl:"constraints,block"`
	Codegen     *codegenBlock     `hcl:"codegen,block"`
}

type constraintsBlock struct {
	MaxParallelTasks *int     `hcl:"max_parallel_tasks,optional"`
	MaxMemoryMB      *int     `hcl:"max_memory_mb,optional"`
	MaxCPUCores      *int     `hcl:"max_cpu_cores,optional"`
	MaxExecutionTime *float64 `hcl:"max_execution_time,optional"`
}

type codegenBlock struct {
	EnableOptimization *bool   `hcl:"enable_optimization,optional"`
	EnableParallel     *bool   `hcl:"enable_parallel,optional"`
	EnableCaching      *bool   `hcl:"enable_caching,optional"`
	MaxParallelBlocks  *int    `hcl:"max_parallel_blocks,optional"`
	OptimizationLevel  *int    `hcl:"optimization_level,optional"`
	Operator           *string `hcl:"operator,optional"`
	CacheSize          *int    `hcl:"cache_size,optional"`
}

// DefaultPlannerDefaults returns the built-in defaults
func DefaultPlannerDefaults() PlannerDefaults {
	return PlannerDefaults{
		Constraints: planner.DefaultConstraints(),
		Codegen:     codegen.DefaultConfig(),
	}
}

// LoadPlannerFile decodes an HCL planner file. An empty path returns the
// built-in defaults.
func LoadPlannerFile(path string) (PlannerDefaults, error) {
	if path == "" {
		return DefaultPlannerDefaults(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return PlannerDefaults{}, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decodePlannerBody(file.Body, path)
}

// ParsePlannerConfig decodes planner defaults from HCL source
func ParsePlannerConfig(src []byte, filename string) (PlannerDefaults, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return PlannerDefaults{}, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decodePlannerBody(file.Body, filename)
}

func decodePlannerBody(body hcl.Body, filename string) (PlannerDefaults, error) {
	var root plannerFile
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return PlannerDefaults{}, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	out := DefaultPlannerDefaults()
	if c := root.Constraints; c != nil {
		setInt(&out.Constraints.MaxParallelTasks, c.MaxParallelTasks)
		setInt(&out.Constraints.MaxMemoryMB, c.MaxMemoryMB)
		setInt(&out.Constraints.MaxCPUCores, c.MaxCPUCores)
		if c.MaxExecutionTime != nil {
			out.Constraints.MaxExecutionTime = *c.MaxExecutionTime
		}
	}
	if g := root.Codegen; g != nil {
		setBool(&out.Codegen.EnableOptimization, g.EnableOptimization)
		setBool(&out.Codegen.EnableParallel, g.EnableParallel)
		setBool(&out.Codegen.EnableCaching, g.EnableCaching)
		setInt(&out.Codegen.MaxParallelBlocks, g.MaxParallelBlocks)
		setInt(&out.Codegen.OptimizationLevel, g.OptimizationLevel)
		setInt(&out.Codegen.CacheSize, g.CacheSize)
		if g.Operator != nil {
			out.Codegen.Operator = *g.Operator
		}
	}

	if err := validateDefaults(out); err != nil {
		return PlannerDefaults{}, fmt.Errorf("%s: %w", filename, err)
	}
	return out, nil
}

func validateDefaults(d PlannerDefaults) error {
	c := d.Constraints
	if c.MaxParallelTasks < 0 || c.MaxMemoryMB < 0 || c.MaxCPUCores < 0 || c.MaxExecutionTime < 0 {
		return fmt.Errorf("constraints must not be negative")
	}
	if d.Codegen.MaxParallelBlocks < 0 {
		return fmt.Errorf("max_parallel_blocks must not be negative")
	}
	return d.Codegen.Validate()
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
