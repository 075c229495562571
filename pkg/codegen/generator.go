// Package codegen turns a dependency DAG into set-operation source text,
// optimizes the generated blocks and groups them for parallel execution.
package codegen

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chicogong/pattern-planner/pkg/dag"
	"github.com/chicogong/pattern-planner/pkg/matrix"
	"github.com/chicogong/pattern-planner/pkg/operators"
	_ "github.com/chicogong/pattern-planner/pkg/operators/builtin"
)

// pairKey is an unordered vertex pair stored as (min, max), scoped to the
// DAG it was computed on
type pairKey struct {
	graph  string
	lo, hi int
}

func newPairKey(graph string, a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{graph: graph, lo: a, hi: b}
}

// CacheStats reports pair cache usage
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// Program is the generator output
type Program struct {
	// Blocks after optimization, in output order
	Blocks []*Block

	// Groups partitions Blocks; each group of more than one block may run
	// in parallel
	Groups [][]*Block

	// Code holds one rendered fragment per group
	Code []string
}

// Generator emits code for DAGs. A Generator owns its cache and may be
// reused across DAGs; cached pairs are keyed by the DAG they came from.
// It is safe to call ClearCache while another goroutine generates.
type Generator struct {
	cfg       Config
	op        operators.Operator
	cacheable bool
	cache     *lru.Cache[pairKey, operators.Set]
	hits      atomic.Int64
	misses    atomic.Int64
}

// New creates a generator with the operator named by cfg
func New(cfg Config) (*Generator, error) {
	return NewWithRegistry(cfg, operators.GlobalRegistry())
}

// NewWithRegistry creates a generator resolving operators from registry
func NewWithRegistry(cfg Config, registry *operators.Registry) (*Generator, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	op, err := registry.Get(cfg.Operator)
	if err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}

	cache, err := lru.New[pairKey, operators.Set](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("codegen: failed to create cache: %w", err)
	}

	return &Generator{
		cfg:       cfg,
		op:        op,
		cacheable: op.Describe().Commutative,
		cache:     cache,
	}, nil
}

// Config returns the effective configuration
func (g *Generator) Config() Config {
	return g.cfg
}

// ClearCache drops every cached pair result
func (g *Generator) ClearCache() {
	g.cache.Purge()
	g.hits.Store(0)
	g.misses.Store(0)
}

// CacheStats returns cache counters since the last clear
func (g *Generator) CacheStats() CacheStats {
	return CacheStats{
		Hits:   g.hits.Load(),
		Misses: g.misses.Load(),
		Size:   g.cache.Len(),
	}
}

// Generate produces the program for d. A nil DAG yields an empty program.
func (g *Generator) Generate(d *dag.DAG) *Program {
	if d == nil {
		return &Program{Blocks: []*Block{}, Groups: [][]*Block{}, Code: []string{}}
	}

	blocks := g.generateBlocks(d)

	if g.cfg.EnableOptimization {
		if g.cfg.OptimizationLevel >= LevelRedundancy {
			blocks = eliminateRedundancy(blocks)
		}
		if g.cfg.OptimizationLevel >= LevelMerge {
			blocks = mergeSimilar(blocks)
		}
		if g.cfg.OptimizationLevel >= LevelReorder {
			reorder(blocks)
		}
	}

	var groups [][]*Block
	if g.cfg.EnableParallel {
		groups = partition(blocks, g.cfg.MaxParallelBlocks)
	} else {
		groups = partition(blocks, 1)
	}

	code := make([]string, 0, len(groups))
	for _, group := range groups {
		code = append(code, renderGroup(group))
	}

	return &Program{Blocks: blocks, Groups: groups, Code: code}
}

// generateBlocks emits, per vertex, a declaration block and, when the
// vertex has several neighbors with a non-empty fold, a set-operation block.
// A block's priority is the index of the vertex that generated it.
func (g *Generator) generateBlocks(d *dag.DAG) []*Block {
	n := d.Size()
	graph := d.Matrix().String()
	neighbors := make([]operators.Set, n)
	for v := 0; v < n; v++ {
		neighbors[v] = neighborSet(d, v)
	}

	blocks := []*Block{}
	for v := 0; v < n; v++ {
		blocks = append(blocks, declaration(d, v, neighbors[v]))

		if len(neighbors[v]) <= 1 {
			continue
		}

		result := g.fold(graph, neighbors, neighbors[v])
		if len(result) == 0 {
			continue
		}

		reads := make([]string, len(neighbors[v]))
		for i, w := range neighbors[v] {
			reads[i] = neighborVar(w)
		}
		resultVar := g.op.Name() + "_result"
		blocks = append(blocks, &Block{
			Kind:    Sequential,
			Lines:   []string{fmt.Sprintf("%s = %s", resultVar, result)},
			Priority: v,
			Vertex:   v,
			Defines:  []string{resultVar},
			Reads:    reads,
		})
	}

	return blocks
}

// fold applies the operator across the neighbor sets of every vertex in
// over. The first pair goes through the cache.
func (g *Generator) fold(graph string, neighbors []operators.Set, over operators.Set) operators.Set {
	first, second := over[0], over[1]
	result := g.pair(graph, neighbors, first, second)
	for _, w := range over[2:] {
		result = g.op.Apply(result, neighbors[w])
	}
	return result
}

func (g *Generator) pair(graph string, neighbors []operators.Set, a, b int) operators.Set {
	if !g.cfg.EnableCaching || !g.cacheable {
		return g.op.Apply(neighbors[a], neighbors[b])
	}

	key := newPairKey(graph, a, b)
	if cached, ok := g.cache.Get(key); ok {
		g.hits.Add(1)
		return cached
	}
	g.misses.Add(1)

	result := g.op.Apply(neighbors[a], neighbors[b])
	g.cache.Add(key, result)
	return result
}

func neighborSet(d *dag.DAG, v int) operators.Set {
	out := operators.Set{}
	for j := 0; j < d.Size(); j++ {
		if d.At(v, j) > 0 {
			out = append(out, j)
		}
	}
	return out
}

func neighborVar(v int) string {
	return fmt.Sprintf("neighbors_%d", v)
}

// declaration binds neighbors_v. A vertex on the update edge only
// declares its set when that edge is being updated.
func declaration(d *dag.DAG, v int, neighbors operators.Set) *Block {
	name := neighborVar(v)
	b := &Block{
		Kind:     Sequential,
		Lines:    []string{fmt.Sprintf("%s = %s", name, neighbors)},
		Priority: v,
		Vertex:   v,
		Defines:  []string{name},
	}

	for w := 0; w < d.Size(); w++ {
		if d.At(v, w) == matrix.Marked || d.At(w, v) == matrix.Marked {
			lo, hi := v, w
			if lo > hi {
				lo, hi = hi, lo
			}
			b.Kind = Conditional
			b.Condition = fmt.Sprintf("is_update(%d, %d)", lo, hi)
			break
		}
	}

	return b
}
