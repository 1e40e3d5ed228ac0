// Package main implements the graphrag command line tool. It loads a property graph
// and a schema, answers natural language questions over the graph, and evolves the
// schema from new instance data.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/c360/graphrag/config"
	"github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/graph"
	"github.com/c360/graphrag/metric"
	"github.com/c360/graphrag/pkg/cache"
	"github.com/c360/graphrag/pkg/embedding"
	"github.com/c360/graphrag/processor/query"
	"github.com/c360/graphrag/processor/query/intent"
	"github.com/c360/graphrag/schema"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "graphrag"
)

// Exit codes
const (
	exitFailure = 1
	exitInvalid = 2
	exitFatal   = 3
)

const (
	cmdQuery  = "query"
	cmdRepl   = "repl"
	cmdBatch  = "batch"
	cmdEvolve = "evolve"
	cmdExport = "export"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitFatal)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		code := exitCode(err)
		slog.Error("Application failed", "error", err, "exit_code", code)
		stop()
		os.Exit(code)
	}
}

// exitCode maps bad input and configuration to 2 and fatal errors to 3.
func exitCode(err error) int {
	switch {
	case errors.IsFatal(err):
		return exitFatal
	case errors.IsInvalid(err):
		return exitInvalid
	default:
		return exitFailure
	}
}

// app holds the wired components for one invocation.
type app struct {
	processor *query.Processor
	registry  *metric.MetricsRegistry
	embedder  embedding.Embedder
	logger    *slog.Logger
}

func (a *app) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		return errors.WrapInvalid(err, "graphrag", "run", "parse flags")
	}
	if err := validateFlags(cliCfg); err != nil {
		return errors.WrapInvalid(err, "graphrag", "run", "validate flags")
	}

	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		return nil
	}

	logger := setupLogger(stderr, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Metrics.Enabled {
		srv := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, a.registry)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() { _ = srv.Stop() }()
		logger.Info("metrics server started", "address", srv.Address())
	}

	switch cliCfg.Command {
	case cmdQuery:
		return a.query(ctx, strings.Join(cliCfg.Args, " "), stdout)
	case cmdBatch:
		return a.batch(ctx, cliCfg.Args[0], cliCfg.Concurrency, stdout)
	case cmdEvolve:
		return a.evolve(ctx, cliCfg.Args[0], cfg.Schema, stdout)
	case cmdExport:
		return a.processor.ExportSchema(cliCfg.Args[0])
	default:
		return a.repl(ctx, stdin, stdout)
	}
}

// loadConfig layers the config file, the environment and the command line flags
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.GraphPath != "" {
		cfg.Graph.Path = cliCfg.GraphPath
	}
	if cliCfg.SchemaPath != "" {
		cfg.Schema.Path = cliCfg.SchemaPath
	}
	if cliCfg.Threshold >= 0 {
		cfg.Schema.EvolutionThreshold = cliCfg.Threshold
	}
	if cliCfg.ExportPath != "" {
		cfg.Schema.ExportPath = cliCfg.ExportPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp loads the graph and schema and wires the query pipeline
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	registry := metric.NewMetricsRegistry()

	store := graph.NewStore(logger)
	if cfg.Graph.Path != "" {
		if _, err := store.LoadFile(cfg.Graph.Path); err != nil {
			return nil, fmt.Errorf("load graph: %w", err)
		}
	}
	registry.CoreMetrics().RecordGraphSize(store.NodeCount(), store.EdgeCount())

	reg := schema.NewDefault(logger)
	if cfg.Schema.Path != "" {
		// LoadFile falls back to the default schema and has already logged why.
		reg, _ = schema.LoadFile(cfg.Schema.Path, logger)
	}
	registry.CoreMetrics().SchemaVersion.Set(float64(len(reg.Versions())))

	embedder, err := newEmbedder(cfg.Embedding, registry, logger)
	if err != nil {
		return nil, err
	}

	classifier, err := intent.NewDefault(ctx, embedder, cfg.Intent, logger)
	if classifier == nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}
	if err != nil {
		logger.Warn("intent centroids unavailable, using patterns only", "error", err)
	}

	proc, err := query.NewProcessor(query.Deps{
		Config:     cfg.Query,
		Graph:      store,
		Classifier: classifier,
		Schema:     reg,
		Registry:   registry,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}

	return &app{processor: proc, registry: registry, embedder: embedder, logger: logger}, nil
}

// newEmbedder builds the configured embedder, memoized when cache_size > 0
func newEmbedder(cfg config.EmbeddingConfig, registry *metric.MetricsRegistry, logger *slog.Logger) (embedding.Embedder, error) {
	var inner embedding.Embedder
	switch cfg.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderHTTP:
		retryCfg := cfg.Retry
		h, err := embedding.NewHTTPEmbedder(embedding.HTTPConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			APIKey:     cfg.APIKey,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
			Retry:      &retryCfg,
			RateLimit:  cfg.RateLimit,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create http embedder: %w", err)
		}
		inner = h
	default:
		inner = embedding.NewBM25Embedder(embedding.BM25Config{Dimensions: cfg.Dimensions})
	}

	if cfg.CacheSize <= 0 {
		return inner, nil
	}
	c, err := cache.NewLRU[[]float32](cfg.CacheSize, cache.WithMetrics[[]float32](registry, "embedding"))
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return embedding.NewCachedEmbedder(inner, c), nil
}

func (a *app) query(ctx context.Context, text string, w io.Writer) error {
	resp := a.processor.ProcessQuery(ctx, text, nil)
	if resp.Error != "" {
		a.registry.CoreMetrics().RecordError("query", "execution")
	}
	return writeJSON(w, resp)
}

func (a *app) batch(ctx context.Context, path string, concurrency int, w io.Writer) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read questions: %w", err)
	}

	var texts []string
	for _, line := range strings.Split(string(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			texts = append(texts, line)
		}
	}

	responses := a.processor.ProcessBatch(ctx, texts, nil, concurrency)
	for _, resp := range responses {
		if resp.Error != "" {
			a.registry.CoreMetrics().RecordError("query", "execution")
		}
	}
	return writeJSON(w, responses)
}

func (a *app) evolve(ctx context.Context, path string, cfg config.SchemaConfig, w io.Writer) error {
	data, err := graph.ReadInstanceFile(path)
	if err != nil {
		return fmt.Errorf("read instance data: %w", err)
	}

	report, err := a.processor.Evolve(ctx, data, cfg.EvolutionThreshold)
	if err != nil {
		a.registry.CoreMetrics().RecordError("schema", "evolution")
		return fmt.Errorf("evolve schema: %w", err)
	}
	if err := writeJSON(w, report); err != nil {
		return err
	}

	if cfg.ExportPath != "" {
		return a.processor.ExportSchema(cfg.ExportPath)
	}
	return nil
}

// repl answers one question per input line. Lines starting with '/' are commands:
//
//	/history                 recent queries
//	/stats                   query statistics
//	/feedback <id> <intent>  queue an intent correction for a previous query
//	/apply                   apply queued feedback to the classifier
//	/quit                    exit
func (a *app) repl(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if err := a.query(ctx, line, w); err != nil {
				return err
			}
			continue
		}

		fields := strings.Fields(line)
		var out any
		switch fields[0] {
		case "/quit", "/exit":
			return nil
		case "/history":
			out = a.processor.History()
		case "/stats":
			out = a.processor.Stats()
		case "/feedback":
			if len(fields) < 3 {
				_, _ = fmt.Fprintln(w, "usage: /feedback <query-id> <intent>")
				continue
			}
			if err := a.processor.CollectFeedback(fields[1], query.Feedback{CorrectIntent: fields[2]}); err != nil {
				if !errors.IsInvalid(err) {
					return err
				}
				a.logger.Warn("feedback rejected", "error", err)
				continue
			}
			out = map[string]int{"pending": a.processor.PendingFeedback()}
		case "/apply":
			update, err := a.processor.ApplyFeedback(ctx)
			if err != nil {
				a.logger.Warn("feedback partially applied", "error", err)
			}
			out = update
		default:
			_, _ = fmt.Fprintf(w, "unknown command %s\n", fields[0])
			continue
		}
		if err := writeJSON(w, out); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
