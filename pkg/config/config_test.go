package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicogong/pattern-planner/pkg/codegen"
	"github.com/chicogong/pattern-planner/pkg/planner"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.APIKeys)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, "us-east-1", cfg.Artifact.Region)
	assert.Empty(t, cfg.Artifact.Bucket)
	assert.True(t, cfg.Artifact.UseSSL)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PLANNER_ADDR":         "127.0.0.1:9000",
		"LOG_LEVEL":            "DEBUG",
		"LOG_FORMAT":           "json",
		"DATABASE_URL":         "postgres://planner@db/planner",
		"JWT_SECRET":           "s3cret",
		"API_KEYS":             "key-a, key-b,,",
		"MAX_CONCURRENT_JOBS":  "8",
		"ARTIFACT_S3_ENDPOINT": "minio:9000",
		"ARTIFACT_S3_USE_SSL":  "false",
		"ARTIFACT_S3_BUCKET":   "artifacts",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "postgres://planner@db/planner", cfg.DatabaseURL)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.APIKeys)
	assert.Equal(t, 8, cfg.MaxConcurrentJobs)
	assert.Equal(t, "minio:9000", cfg.Artifact.Endpoint)
	assert.False(t, cfg.Artifact.UseSSL)
	assert.Equal(t, "artifacts", cfg.Artifact.Bucket)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"log format": {"LOG_FORMAT": "xml"},
		"use ssl":    {"ARTIFACT_S3_USE_SSL": "maybe"},
		"jobs":       {"MAX_CONCURRENT_JOBS": "0"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envMap(env))
			assert.Error(t, err)
		})
	}
}

func TestParsePlannerConfig(t *testing.T) {
	src := []byte(`
constraints {
  max_parallel_tasks = 2
  max_memory_mb      = 4096
  max_execution_time = 10.5
}

codegen {
  enable_parallel    = false
  optimization_level = 1
  operator           = "union"
}
`)

	got, err := ParsePlannerConfig(src, "planner.hcl")
	require.NoError(t, err)

	want := planner.DefaultConstraints()
	want.MaxParallelTasks = 2
	want.MaxMemoryMB = 4096
	want.MaxExecutionTime = 10.5
	assert.Equal(t, want, got.Constraints)

	wantGen := codegen.DefaultConfig()
	wantGen.EnableParallel = false
	wantGen.OptimizationLevel = codegen.LevelRedundancy
	wantGen.Operator = "union"
	assert.Equal(t, wantGen, got.Codegen)
}

func TestParsePlannerConfig_Errors(t *testing.T) {
	tests := map[string]string{
		"syntax":          `constraints {`,
		"unknown block":   `scheduler {}`,
		"wrong type":      `constraints { max_memory_mb = "lots" }`,
		"negative":        `constraints { max_cpu_cores = -1 }`,
		"level out range": `codegen { optimization_level = 9 }`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlannerConfig([]byte(src), "planner.hcl")
			assert.Error(t, err)
		})
	}
}

func TestLoadPlannerFile(t *testing.T) {
	got, err := LoadPlannerFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPlannerDefaults(), got)

	path := filepath.Join(t.TempDir(), "planner.hcl")
	require.NoError(t, os.WriteFile(path, []byte("constraints {\n  max_cpu_cores = 16\n}\n"), 0o644))

	got, err = LoadPlannerFile(path)
	require.NoError(t, err)
	assert.Equal(t, 16, got.Constraints.MaxCPUCores)
	assert.Equal(t, planner.DefaultConstraints().MaxMemoryMB, got.Constraints.MaxMemoryMB)

	_, err = LoadPlannerFile(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
