package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	GraphPath   string
	SchemaPath  string
	LogLevel    string
	LogFormat   string
	Debug       bool
	Threshold   float64
	ExportPath  string
	Concurrency int
	ShowVersion bool
	ShowHelp    bool
	Validate    bool

	Command string
	Args    []string
}

func parseFlags(args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigPath, "config", getEnv("GRAPHRAG_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: GRAPHRAG_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c", getEnv("GRAPHRAG_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: GRAPHRAG_CONFIG)")
	fs.StringVar(&cfg.GraphPath, "graph", "", "Instance data to load, overrides graph.path")
	fs.StringVar(&cfg.SchemaPath, "schema", "", "Base schema file, overrides schema.path")

	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("GRAPHRAG_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: GRAPHRAG_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("GRAPHRAG_LOG_FORMAT", "text"),
		"Log format: json, text (env: GRAPHRAG_LOG_FORMAT)")
	fs.BoolVar(&cfg.Debug, "debug", getEnvBool("GRAPHRAG_DEBUG", false),
		"Enable debug logging (env: GRAPHRAG_DEBUG)")

	fs.Float64Var(&cfg.Threshold, "threshold", -1,
		"Evolution confidence threshold, overrides schema.evolution_threshold")
	fs.StringVar(&cfg.ExportPath, "export", "", "Write the schema here after evolve, overrides schema.export_path")

	fs.IntVar(&cfg.Concurrency, "concurrency", 0, "Queries answered in parallel by batch, 0 for GOMAXPROCS")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() { printDetailedHelp(fs) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	if cfg.ShowHelp {
		fs.Usage()
	}
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Command = rest[0]
		cfg.Args = rest[1:]
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("invalid concurrency: %d", cfg.Concurrency)
	}
	if cfg.Threshold > 1 {
		return fmt.Errorf("invalid threshold: %v", cfg.Threshold)
	}

	switch cfg.Command {
	case "", cmdRepl:
	case cmdQuery:
		if len(cfg.Args) == 0 {
			return fmt.Errorf("query needs the question text")
		}
	case cmdBatch:
		if len(cfg.Args) != 1 {
			return fmt.Errorf("batch needs exactly one file of questions")
		}
	case cmdEvolve:
		if len(cfg.Args) != 1 {
			return fmt.Errorf("evolve needs exactly one instance data file")
		}
	case cmdExport:
		if len(cfg.Args) != 1 {
			return fmt.Errorf("export needs exactly one output path")
		}
	default:
		return fmt.Errorf("unknown command: %s", cfg.Command)
	}
	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(os.Stderr, `%s - natural language queries over a property graph

Usage: %s [options] <command> [args]

Commands:
  query <text>         Answer one question and print the response as JSON
  repl                 Read questions from stdin, one per line (default)
  batch <file>         Answer every line of file concurrently, print a JSON array
  evolve <data.json>   Analyze instance data and evolve the schema
  export <path>        Write the current schema as JSON or YAML

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Ask a question against an instance data file
  %s --graph=data/insurance.json query "What is the status of claim CL4001?"

  # Evolve the schema and export it as YAML
  %s --threshold=0.5 --export=schema.yaml evolve data/batch.json

  # Run with environment variables
  export GRAPHRAG_CONFIG=/etc/graphrag/config.yaml
  export GRAPHRAG_LOG_LEVEL=debug
  %s repl

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
