package codegen

import "fmt"

// Optimization levels; each one enables one more pass
const (
	LevelNone       = 0
	LevelRedundancy = 1
	LevelMerge      = 2
	LevelReorder    = 3
)

const (
	defaultOperator  = "intersection"
	defaultCacheSize = 1024
)

// Config toggles the generator passes
type Config struct {
	EnableOptimization bool
	EnableParallel     bool
	EnableCaching      bool
	MaxParallelBlocks  int
	OptimizationLevel  int

	// Operator names the registered set operator folded over neighbor sets
	Operator string

	// CacheSize bounds the neighbor pair cache
	CacheSize int
}

// DefaultConfig enables every pass
func DefaultConfig() Config {
	return Config{
		EnableOptimization: true,
		EnableParallel:     true,
		EnableCaching:      true,
		MaxParallelBlocks:  4,
		OptimizationLevel:  LevelReorder,
		Operator:           defaultOperator,
		CacheSize:          defaultCacheSize,
	}
}

func (c *Config) applyDefaults() {
	if c.Operator == "" {
		c.Operator = defaultOperator
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
}

// Validate checks the optimization level range
func (c Config) Validate() error {
	if c.OptimizationLevel < LevelNone || c.OptimizationLevel > LevelReorder {
		return fmt.Errorf("optimization level %d out of range [%d, %d]", c.OptimizationLevel, LevelNone, LevelReorder)
	}
	return nil
}
