// Package query answers natural-language questions against the property graph.
//
// A Processor runs each question through the pipeline: intent classification,
// parameter extraction, query building, execution and answer synthesis. It keeps a
// bounded history of processed queries, collects feedback that can be folded back
// into the intent classifier, and exposes the schema evolution entry points that
// share its schema registry.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/graph"
	"github.com/c360/graphrag/metric"
	"github.com/c360/graphrag/processor/query/builder"
	"github.com/c360/graphrag/processor/query/executor"
	"github.com/c360/graphrag/processor/query/intent"
	"github.com/c360/graphrag/processor/query/params"
	"github.com/c360/graphrag/processor/query/response"
	evolution "github.com/c360/graphrag/processor/schema"
	graphschema "github.com/c360/graphrag/schema"
	gq "github.com/c360/graphrag/types/graphquery"
)

// Response is the outcome of one processed query.
type Response struct {
	ID                  string        `json:"id"`
	Query               string        `json:"query"`
	Answer              string        `json:"answer"`
	Success             bool          `json:"success"`
	Confidence          float64       `json:"confidence"`
	Intent              string        `json:"intent"`
	Method              string        `json:"method"`
	ExtractedParameters params.Params `json:"extracted_parameters"`
	FollowUpQuestions   []string      `json:"follow_up_questions"`
	Duration            time.Duration `json:"response_time"`
	Error               string        `json:"error,omitempty"`
}

// HistoryEntry records a processed query.
type HistoryEntry struct {
	ID         string        `json:"id"`
	Query      string        `json:"query"`
	Intent     string        `json:"intent"`
	Confidence float64       `json:"confidence"`
	Parameters params.Params `json:"parameters"`
	Answer     string        `json:"response"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Deps holds the collaborators of a Processor. Graph is required; the other
// components default to their standard insurance configuration.
type Deps struct {
	Config      Config
	Graph       executor.Graph
	Classifier  *intent.Classifier
	Extractor   *params.Extractor
	Builder     *builder.Builder
	Synthesizer *response.Synthesizer
	Schema      *graphschema.Registry
	Registry    *metric.MetricsRegistry
	Logger      *slog.Logger
}

// Processor runs the query pipeline. ProcessQuery may be called concurrently;
// ApplyFeedback excludes classification while it changes intent examples. Schema
// evolution is not synchronized with other schema writers.
type Processor struct {
	cfg         Config
	classifier  *intent.Classifier
	extractor   *params.Extractor
	builder     *builder.Builder
	executor    *executor.Executor
	synthesizer *response.Synthesizer
	schema      *graphschema.Registry
	evolver     *evolution.Evolver
	metrics     *Metrics
	logger      *slog.Logger

	// intentMu guards classifier examples and centroids.
	intentMu sync.RWMutex

	mu       sync.Mutex
	history  []HistoryEntry
	feedback []feedbackEntry
	stats    queryStats
}

// NewProcessor wires a Processor from deps.
func NewProcessor(deps Deps) (*Processor, error) {
	deps.Config.SetDefaults()
	if err := deps.Config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Processor", "NewProcessor", "configuration validation failed")
	}
	if deps.Graph == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil graph: %w", errors.ErrInvalidConfig),
			"Processor", "NewProcessor", "check dependencies")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Processor{
		cfg:         deps.Config,
		classifier:  deps.Classifier,
		extractor:   deps.Extractor,
		builder:     deps.Builder,
		synthesizer: deps.Synthesizer,
		schema:      deps.Schema,
		logger:      logger.With("component", "query"),
		stats:       queryStats{intents: make(map[string]int)},
	}

	if p.classifier == nil {
		c, err := intent.NewDefault(context.Background(), nil, intent.DefaultConfig(), logger)
		if err != nil {
			return nil, errors.Wrap(err, "Processor", "NewProcessor", "create default classifier")
		}
		p.classifier = c
	}
	if p.extractor == nil {
		p.extractor = params.NewExtractor(logger)
	}
	if p.builder == nil {
		p.builder = builder.New()
	}
	if p.synthesizer == nil {
		p.synthesizer = response.New(logger, response.WithDefinitions(response.NewGraphDefinitions(deps.Graph)))
	}
	if p.schema == nil {
		p.schema = graphschema.NewDefault(logger)
	}

	var err error
	if p.metrics, err = NewMetrics(deps.Registry); err != nil {
		return nil, err
	}
	execMetrics, err := executor.NewMetrics(deps.Registry)
	if err != nil {
		return nil, err
	}
	evoMetrics, err := evolution.NewMetrics(deps.Registry)
	if err != nil {
		return nil, err
	}

	p.executor = executor.New(deps.Graph, logger, executor.WithMetrics(execMetrics))
	p.evolver = evolution.NewEvolver(p.schema, evoMetrics, logger)
	return p, nil
}

// ProcessQuery answers text. It never fails: execution faults are reported in
// Response.Error with an unsuccessful answer.
func (p *Processor) ProcessQuery(ctx context.Context, text string, userContext map[string]any) Response {
	start := time.Now()

	p.intentMu.RLock()
	cl := p.classifier.Classify(ctx, text)
	p.intentMu.RUnlock()

	extracted := p.extractor.Extract(text, cl.Intent, userContext)
	spec := p.builder.Build(cl.Intent, extracted)
	result := p.execute(ctx, spec)

	// Definition lookups retry with the term as originally extracted.
	if cl.Intent == intent.DefinitionInquiry && result.Count == 0 && result.Error == "" {
		if original, ok := extracted.String(params.KeyOriginalTerm); ok {
			backup := extracted.Clone()
			backup[params.KeyTerm] = original
			if r := p.execute(ctx, p.builder.Build(cl.Intent, backup)); r.Count > 0 {
				result = r
			}
		}
	}

	answer := p.synthesizer.Synthesize(cl.Intent, result, extracted)
	followUps := response.FollowUps(cl.Intent, extracted, result)
	if len(followUps) > p.cfg.MaxFollowUps {
		followUps = followUps[:p.cfg.MaxFollowUps]
	}

	resp := Response{
		ID:                  uuid.NewString(),
		Query:               text,
		Answer:              answer.Text,
		Success:             answer.Success && result.Error == "",
		Confidence:          cl.Confidence,
		Intent:              cl.Intent,
		Method:              string(cl.Method),
		ExtractedParameters: extracted,
		FollowUpQuestions:   followUps,
		Error:               result.Error,
		Duration:            time.Since(start),
	}

	p.record(resp, spec != nil && len(spec.Paths) > 1)
	p.metrics.recordQuery(&resp, result.Count)
	p.logger.Debug("query processed",
		"id", resp.ID, "intent", resp.Intent, "method", resp.Method,
		"count", result.Count, "success", resp.Success, "duration", resp.Duration)
	return resp
}

func (p *Processor) execute(ctx context.Context, spec *gq.Spec) *gq.Result {
	res, err := p.executor.Execute(ctx, spec)
	if err != nil && res.Error == "" {
		res.Error = err.Error()
	}
	return res
}

func (p *Processor) record(r Response, multiPath bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history = append(p.history, HistoryEntry{
		ID:         r.ID,
		Query:      r.Query,
		Intent:     r.Intent,
		Confidence: r.Confidence,
		Parameters: r.ExtractedParameters,
		Answer:     r.Answer,
		Timestamp:  time.Now(),
	})
	if over := len(p.history) - p.cfg.MaxHistory; over > 0 {
		p.history = append(p.history[:0:0], p.history[over:]...)
	}

	p.stats.observe(r, multiPath)
}

// History returns the retained queries, oldest first.
func (p *Processor) History() []HistoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]HistoryEntry, len(p.history))
	copy(out, p.history)
	return out
}

// Schema returns the schema registry queries and evolution share.
func (p *Processor) Schema() *graphschema.Registry {
	return p.schema
}

// Evolve analyzes data and applies the schema proposals reaching threshold.
func (p *Processor) Evolve(ctx context.Context, data graph.InstanceData, threshold float64) (*evolution.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "Processor", "Evolve", "check context")
	}
	return p.evolver.Evolve(data, threshold)
}

// ExportSchema writes the schema document to path, YAML for .yaml and .yml.
func (p *Processor) ExportSchema(path string) error {
	return p.schema.ExportFile(path)
}
