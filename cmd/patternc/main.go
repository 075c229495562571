// Command patternc compiles a pattern into its schedules, DAG, generated
// code and execution plan.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chicogong/pattern-planner/pkg/compiler"
	"github.com/chicogong/pattern-planner/pkg/config"
	"github.com/chicogong/pattern-planner/pkg/logging"
	"github.com/chicogong/pattern-planner/pkg/schemas"
	"github.com/chicogong/pattern-planner/pkg/storage"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the parsed command line
type options struct {
	spec      schemas.PatternSpec
	format    string
	config    string
	logLevel  string
	logFormat string
	region    string
}

func parse(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("patternc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, `
patternc - compile a graph pattern into a matching plan.

Usage:
  patternc [options] -size N -adjacency BUFFER
  patternc [options] -size N PATTERN_URI

Arguments:
  PATTERN_URI
    file://, http(s):// or s3:// URI, or a plain path, of a file holding the
    row-major adjacency buffer. Whitespace in the file is ignored.

Options:
`)
		fs.PrintDefaults()
	}

	o := &options{}
	var timeout time.Duration
	fs.StringVar(&o.spec.Name, "name", "pattern", "Pattern name.")
	fs.IntVar(&o.spec.Size, "size", 0, "Number of pattern vertices.")
	fs.StringVar(&o.spec.Adjacency, "adjacency", "", "Row-major adjacency buffer of '0', '1' and '2'.")
	strategy := fs.String("strategy", "", "Plan strategy: default, optimized, time, memory or parallelism.")
	combine := fs.String("combine", "", "DAG construction: union or combine.")
	fs.StringVar(&o.format, "format", "json", "Output: json, code or plan.")
	fs.StringVar(&o.config, "config", "", "HCL file with constraints and codegen defaults.")
	fs.DurationVar(&timeout, "timeout", 0, "Abort compilation after this long. 0 disables.")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Logging level: debug, info, warn or error.")
	fs.StringVar(&o.logFormat, "log-format", "text", "Log output format: text or json.")
	fs.StringVar(&o.region, "s3-region", "us-east-1", "AWS region for s3:// sources.")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch o.format {
	case "json", "code", "plan":
	default:
		return nil, fmt.Errorf("unknown format %q", o.format)
	}

	switch fs.NArg() {
	case 0:
	case 1:
		o.spec.Source = sourceURI(fs.Arg(0))
	default:
		return nil, fmt.Errorf("expected at most one pattern URI, got %d", fs.NArg())
	}

	if *strategy != "" || *combine != "" {
		o.spec.Options = &schemas.CompileOptions{Strategy: *strategy, CombineMode: *combine}
	}
	if timeout > 0 {
		o.spec.Timeout = &schemas.Duration{Duration: timeout}
	}
	return o, nil
}

// sourceURI turns a plain path into a file URI
func sourceURI(arg string) string {
	if strings.Contains(arg, "://") {
		return arg
	}
	return "file://" + arg
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parse(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger := logging.New(o.logLevel, o.logFormat, stderr)
	ctx := logging.WithLogger(context.Background(), logger)

	defaults, err := config.LoadPlannerFile(o.config)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	router := storage.NewRouter()
	router.Register(storage.NewLocalStorage(), "file")
	router.Register(storage.NewHTTPStorage(), "http", "https")
	if strings.HasPrefix(o.spec.Source, "s3://") {
		s3, err := storage.NewS3Storage(ctx, o.region)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitFailure
		}
		router.Register(s3, "s3")
	}

	c := compiler.New(
		compiler.WithFetcher(router),
		compiler.WithDefaultConstraints(defaults.Constraints),
		compiler.WithCodegenConfig(defaults.Codegen),
	)

	result, err := c.Compile(ctx, &o.spec)
	if err != nil {
		fmt.Fprintf(stderr, "compile failed: %v\n", err)
		return exitFailure
	}

	if err := write(stdout, o.format, result); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	if !result.PlanValid {
		for _, msg := range result.PlanErrors {
			fmt.Fprintf(stderr, "plan: %s\n", msg)
		}
		return exitFailure
	}
	return exitOK
}

func write(w io.Writer, format string, result *schemas.CompileResult) error {
	switch format {
	case "code":
		for _, line := range result.Code {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case "plan":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Plan)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}
