// Package compiler runs the full pattern pipeline: validation, schedule
// generation, DAG construction, analysis, code generation and planning.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/chicogong/pattern-planner/pkg/analysis"
	"github.com/chicogong/pattern-planner/pkg/codegen"
	"github.com/chicogong/pattern-planner/pkg/compiler/validator"
	"github.com/chicogong/pattern-planner/pkg/dag"
	"github.com/chicogong/pattern-planner/pkg/logging"
	"github.com/chicogong/pattern-planner/pkg/matrix"
	"github.com/chicogong/pattern-planner/pkg/operators"
	"github.com/chicogong/pattern-planner/pkg/planner"
	"github.com/chicogong/pattern-planner/pkg/schedule"
	"github.com/chicogong/pattern-planner/pkg/schemas"
)

// maxSourceBytes bounds a pattern file read from a source URI
const maxSourceBytes = 1 << 16

// ErrNoFetcher is returned for a spec with a source URI when the compiler
// has no storage to read it from
var ErrNoFetcher = errors.New("no storage configured for pattern sources")

// Fetcher reads pattern files
type Fetcher interface {
	Get(ctx context.Context, uri string) (io.ReadCloser, error)
}

// ProgressFunc receives the pipeline step about to run and the share of
// the work already done, in [0, 100]
type ProgressFunc func(step string, percent float64)

// Pipeline steps reported to a ProgressFunc
const (
	StepValidate  = "validate"
	StepLoad      = "load"
	StepSchedules = "schedules"
	StepDAG       = "dag"
	StepAnalyze   = "analyze"
	StepCodegen   = "codegen"
	StepPlan      = "plan"
)

// Compiler compiles pattern specs. It is safe for concurrent use; every
// compilation gets its own generator and planner.
type Compiler struct {
	validator   *validator.Validator
	fetcher     Fetcher
	registry    *operators.Registry
	constraints planner.ResourceConstraints
	codegen     codegen.Config
	now         func() time.Time
}

// Option configures a Compiler
type Option func(*Compiler)

// WithFetcher sets the storage used to read source URIs
func WithFetcher(f Fetcher) Option {
	return func(c *Compiler) { c.fetcher = f }
}

// WithValidator replaces the default validator
func WithValidator(v *validator.Validator) Option {
	return func(c *Compiler) { c.validator = v }
}

// WithRegistry resolves codegen operators from r instead of the global
// registry
func WithRegistry(r *operators.Registry) Option {
	return func(c *Compiler) { c.registry = r }
}

// WithDefaultConstraints sets the constraints used when a spec has none
func WithDefaultConstraints(rc planner.ResourceConstraints) Option {
	return func(c *Compiler) { c.constraints = rc }
}

// WithCodegenConfig sets the generator configuration used when a spec has
// none
func WithCodegenConfig(cfg codegen.Config) Option {
	return func(c *Compiler) { c.codegen = cfg }
}

// WithClock overrides the time source stamped on results
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// New creates a Compiler
func New(opts ...Option) *Compiler {
	c := &Compiler{
		validator:   validator.New(),
		registry:    operators.GlobalRegistry(),
		constraints: planner.DefaultConstraints(),
		codegen:     codegen.DefaultConfig(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks spec without compiling it
func (c *Compiler) Validate(ctx context.Context, spec *schemas.PatternSpec) error {
	return c.validator.Validate(ctx, spec)
}

// Compile runs the whole pipeline for spec
func (c *Compiler) Compile(ctx context.Context, spec *schemas.PatternSpec) (*schemas.CompileResult, error) {
	return c.CompileWithProgress(ctx, spec, nil)
}

// CompileWithProgress runs the pipeline, reporting each step to progress
// when it is not nil. The spec timeout, if any, bounds the whole run.
func (c *Compiler) CompileWithProgress(ctx context.Context, spec *schemas.PatternSpec, progress ProgressFunc) (*schemas.CompileResult, error) {
	logger := logging.FromContext(ctx)
	report := func(step string, percent float64) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("compile interrupted before %s: %w", step, err)
		}
		logger.Debug("Pipeline step started.", "step", step, "percent", percent)
		if progress != nil {
			progress(step, percent)
		}
		return nil
	}

	if err := report(StepValidate, 0); err != nil {
		return nil, err
	}
	if err := c.Validate(ctx, spec); err != nil {
		return nil, err
	}

	if spec.Timeout != nil && spec.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout.Duration)
		defer cancel()
	}
	opts := spec.Options
	if opts == nil {
		opts = &schemas.CompileOptions{}
	}

	if err := report(StepLoad, 5); err != nil {
		return nil, err
	}
	pattern, err := c.loadPattern(ctx, spec)
	if err != nil {
		return nil, err
	}

	if err := report(StepSchedules, 10); err != nil {
		return nil, err
	}
	reps, err := schedule.FromPattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schedules: %w", err)
	}
	schedules := schedule.Schedules(reps)
	logger.Debug("Schedules generated.", "representatives", len(reps), "schedules", len(schedules))

	if err := report(StepDAG, 40); err != nil {
		return nil, err
	}
	d, err := buildDAG(opts.CombineMode, schedules)
	if err != nil {
		return nil, fmt.Errorf("failed to build DAG: %w", err)
	}

	if err := report(StepAnalyze, 50); err != nil {
		return nil, err
	}
	result := &schemas.CompileResult{
		Name:        spec.Name,
		CompiledAt:  c.now(),
		PatternSize: pattern.Size(),
		Schedules:   make([][][]int, 0, len(schedules)),
		DAG:         d.Rows(),
	}
	for _, s := range schedules {
		result.Schedules = append(result.Schedules, s.Rows())
	}
	if err := analyze(d, result); err != nil {
		return nil, err
	}

	if err := report(StepCodegen, 65); err != nil {
		return nil, err
	}
	gen, err := codegen.NewWithRegistry(c.codegenConfig(opts.Codegen), c.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create code generator: %w", err)
	}
	result.Code = gen.Generate(d).Code

	if err := report(StepPlan, 80); err != nil {
		return nil, err
	}
	constraints := c.constraints
	if opts.Constraints != nil {
		constraints = *opts.Constraints
	}
	p, err := planner.New(d, constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to create planner: %w", err)
	}
	plan, err := Plan(p, opts.Strategy)
	if err != nil {
		return nil, err
	}
	result.Plan = plan
	result.PlanAnalysis = p.AnalyzePlan(plan)
	result.PlanValid = p.ValidateDependencies(plan)
	if !result.PlanValid {
		result.PlanErrors = append(result.PlanErrors, "dependency order violated")
	}
	if err := p.ValidateResourceRequirements(plan); err != nil {
		result.PlanValid = false
		result.PlanErrors = append(result.PlanErrors, err.Error())
	}

	logger.Info("Pattern compiled.",
		"name", spec.Name,
		"size", result.PatternSize,
		"schedules", len(result.Schedules),
		"stages", len(plan.Stages),
		"plan_valid", result.PlanValid,
	)
	return result, nil
}

// Plan runs the planner strategy named by strategy; "" is the default
func Plan(p *planner.Planner, strategy string) (*schemas.ExecutionPlan, error) {
	switch strategy {
	case "", schemas.StrategyDefault:
		return p.GeneratePlan(), nil
	case schemas.StrategyOptimized:
		return p.GenerateOptimizedPlan(), nil
	case schemas.StrategyTime:
		return p.OptimizeForTime(), nil
	case schemas.StrategyMemory:
		return p.OptimizeForMemory(), nil
	case schemas.StrategyParallelism:
		plan, err := p.OptimizeForParallelism()
		if err != nil {
			return nil, fmt.Errorf("parallelism strategy: %w", err)
		}
		return plan, nil
	default:
		return nil, fmt.Errorf("unknown plan strategy '%s'", strategy)
	}
}

// buildDAG unions every schedule into one DAG, or builds one DAG per
// schedule and merges them by vertex overlap
func buildDAG(mode string, schedules []*schedule.Schedule) (*dag.DAG, error) {
	switch mode {
	case "", schemas.CombineUnion:
		return dag.Build(schedules...)
	case schemas.CombineOverlap:
		dags := make([]*dag.DAG, 0, len(schedules))
		for _, s := range schedules {
			d, err := dag.Build(s)
			if err != nil {
				return nil, err
			}
			dags = append(dags, d)
		}
		if len(dags) == 0 {
			return nil, dag.ErrNoSchedules
		}
		return dag.Combine(dags...)
	default:
		return nil, fmt.Errorf("unknown combine mode '%s'", mode)
	}
}

func analyze(d *dag.DAG, result *schemas.CompileResult) error {
	a := analysis.New(d)
	result.Stats = a.Stats()

	levels, err := a.ExecutionLevels()
	if err != nil {
		return fmt.Errorf("failed to compute execution levels: %w", err)
	}
	result.Levels = levels

	if result.CriticalPath, err = a.CriticalPath(); err != nil {
		return fmt.Errorf("failed to compute critical path: %w", err)
	}
	if result.Performance, err = a.EstimatePerformance(); err != nil {
		return fmt.Errorf("failed to estimate performance: %w", err)
	}
	if result.Suggestions, err = a.AnalyzeForOptimization(); err != nil {
		return fmt.Errorf("failed to analyze for optimization: %w", err)
	}
	return nil
}

func (c *Compiler) codegenConfig(o *schemas.CodegenOptions) codegen.Config {
	if o == nil {
		return c.codegen
	}
	return codegen.Config{
		EnableOptimization: o.EnableOptimization,
		EnableParallel:     o.EnableParallel,
		EnableCaching:      o.EnableCaching,
		MaxParallelBlocks:  o.MaxParallelBlocks,
		OptimizationLevel:  o.OptimizationLevel,
		Operator:           o.Operator,
		CacheSize:          c.codegen.CacheSize,
	}
}

// loadPattern parses the inline buffer or reads it from the source URI.
// Whitespace in a source file is ignored, so rows may sit on their own
// lines.
func (c *Compiler) loadPattern(ctx context.Context, spec *schemas.PatternSpec) (*matrix.Matrix, error) {
	buf := spec.Adjacency
	if spec.Source != "" {
		if c.fetcher == nil {
			return nil, ErrNoFetcher
		}
		rc, err := c.fetcher.Get(ctx, spec.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to read pattern source: %w", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxSourceBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read pattern source: %w", err)
		}
		buf = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, string(data))

		if err := validator.ValidateAdjacency(spec.Size, buf); err != nil {
			return nil, fmt.Errorf("%w: source %s: %w", validator.ErrInvalidSpec, spec.Source, err)
		}
	}

	m, err := matrix.Parse(spec.Size, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern: %w", err)
	}
	return m, nil
}
