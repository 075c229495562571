// Package config loads server settings from the environment and planner
// defaults from HCL files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the server settings
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	// DatabaseURL selects the Postgres job store; empty keeps jobs in memory
	DatabaseURL string

	JWTSecret string
	APIKeys   []string

	// PlannerFile is an optional HCL file with constraint and codegen defaults
	PlannerFile string

	// MaxConcurrentJobs bounds compilations running at once
	MaxConcurrentJobs int

	Artifact ArtifactConfig
}

// ArtifactConfig selects the S3-compatible artifact backend. An empty
// Endpoint means AWS S3 with the default credential chain. Jobs without
// outputs export to Bucket when it is set.
type ArtifactConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads .env when present, then the process environment
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := &Config{
		Addr:        firstNonEmpty(get("PLANNER_ADDR"), ":8080"),
		LogLevel:    firstNonEmpty(strings.ToLower(get("LOG_LEVEL")), "info"),
		LogFormat:   firstNonEmpty(strings.ToLower(get("LOG_FORMAT")), "text"),
		DatabaseURL: get("DATABASE_URL"),
		JWTSecret:   get("JWT_SECRET"),
		APIKeys:     splitList(get("API_KEYS")),
		PlannerFile: get("PLANNER_CONFIG"),
		Artifact: ArtifactConfig{
			Endpoint:  get("ARTIFACT_S3_ENDPOINT"),
			Region:    firstNonEmpty(get("ARTIFACT_S3_REGION"), "us-east-1"),
			AccessKey: get("ARTIFACT_S3_ACCESS_KEY"),
			SecretKey: get("ARTIFACT_S3_SECRET_KEY"),
			Bucket:    get("ARTIFACT_S3_BUCKET"),
			UseSSL:    true,
		},
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	if raw := get("ARTIFACT_S3_USE_SSL"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ARTIFACT_S3_USE_SSL %q: %w", raw, err)
		}
		cfg.Artifact.UseSSL = v
	}

	cfg.MaxConcurrentJobs = 4
	if raw := get("MAX_CONCURRENT_JOBS"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid MAX_CONCURRENT_JOBS %q", raw)
		}
		cfg.MaxConcurrentJobs = v
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
