// Package intent resolves the intent of a query text in two tiers: regex patterns
// first, then cosine similarity against per-intent embedding centroids.
package intent

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/pkg/embedding"
)

// Sentinel errors for intent registration.
var (
	ErrIntentExists  = stderrors.New("intent already registered")
	ErrUnknownIntent = stderrors.New("intent not registered")
)

// Method names the tier that produced a classification.
type Method string

const (
	MethodPattern   Method = "pattern"
	MethodEmbedding Method = "embedding"
	MethodDefault   Method = "default"
)

// Classification is the classifier output.
type Classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
}

// Config tunes both tiers.
type Config struct {
	// SimilarityThreshold is the minimum centroid similarity for an embedding match.
	SimilarityThreshold float64 `json:"similarity_threshold"`
	// Pattern confidence is min(PatternCap, PatternBase + PatternStep*matches).
	PatternBase float64 `json:"pattern_base"`
	PatternStep float64 `json:"pattern_step"`
	PatternCap  float64 `json:"pattern_cap"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.6,
		PatternBase:         0.7,
		PatternStep:         0.1,
		PatternCap:          0.9,
	}
}

type entry struct {
	name     string
	patterns []*regexp.Regexp
	examples []string
	centroid []float32
}

// Classifier is safe for concurrent Classify calls only while no intent or example
// is being changed.
type Classifier struct {
	cfg      Config
	embedder embedding.Embedder
	intents  []*entry
	byName   map[string]*entry
	logger   *slog.Logger
}

// New creates a classifier with no intents. A nil embedder disables the embedding tier.
func New(embedder embedding.Embedder, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		cfg:      cfg,
		embedder: embedder,
		byName:   make(map[string]*entry),
		logger:   logger.With("component", "intent"),
	}
}

// NewDefault creates a classifier with DefaultIntents registered. A centroid error
// leaves the classifier usable in pattern-only mode and is returned alongside it.
func NewDefault(ctx context.Context, embedder embedding.Embedder, cfg Config, logger *slog.Logger) (*Classifier, error) {
	c := New(embedder, cfg, logger)
	for _, def := range DefaultIntents() {
		if err := c.register(def); err != nil {
			return nil, err
		}
	}
	return c, c.Recompute(ctx)
}

// AddIntent registers a new intent after the existing ones and computes its centroid.
func (c *Classifier) AddIntent(ctx context.Context, def Definition) error {
	if err := c.register(def); err != nil {
		return err
	}
	return c.refresh(ctx, def.Name)
}

func (c *Classifier) register(def Definition) error {
	if def.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Classifier", "AddIntent", "validate intent name")
	}
	if _, ok := c.byName[def.Name]; ok {
		return errors.WrapInvalid(fmt.Errorf("%w: %s", ErrIntentExists, def.Name), "Classifier", "AddIntent", "register intent")
	}

	e := &entry{name: def.Name, examples: slices.Clone(def.Examples)}
	for _, p := range def.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return errors.WrapInvalid(err, "Classifier", "AddIntent", fmt.Sprintf("compile pattern for %s", def.Name))
		}
		e.patterns = append(e.patterns, re)
	}

	c.intents = append(c.intents, e)
	c.byName[def.Name] = e
	return nil
}

// SetExamples replaces the examples of an intent and recomputes centroids.
func (c *Classifier) SetExamples(ctx context.Context, name string, examples []string) error {
	e, ok := c.byName[name]
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("%w: %s", ErrUnknownIntent, name), "Classifier", "SetExamples", "find intent")
	}
	e.examples = slices.Clone(examples)
	return c.refresh(ctx, name)
}

// AddExample appends one example to an intent and recomputes centroids.
func (c *Classifier) AddExample(ctx context.Context, name, example string) error {
	e, ok := c.byName[name]
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("%w: %s", ErrUnknownIntent, name), "Classifier", "AddExample", "find intent")
	}
	e.examples = append(e.examples, example)
	return c.refresh(ctx, name)
}

// Intents returns the registered intent names in registration order.
func (c *Classifier) Intents() []string {
	names := make([]string, len(c.intents))
	for i, e := range c.intents {
		names[i] = e.name
	}
	return names
}

// Has reports whether name is registered.
func (c *Classifier) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Examples returns a copy of an intent's examples.
func (c *Classifier) Examples(name string) []string {
	if e, ok := c.byName[name]; ok {
		return slices.Clone(e.examples)
	}
	return nil
}

// Patterns returns the compiled patterns of an intent. Parameter extraction reuses
// them to pull the captured term of a definition query.
func (c *Classifier) Patterns(name string) []*regexp.Regexp {
	if e, ok := c.byName[name]; ok {
		return slices.Clone(e.patterns)
	}
	return nil
}

// refresh recomputes centroids after the examples of name changed. Embedders that
// depend on corpus statistics are refit and every centroid recomputed.
func (c *Classifier) refresh(ctx context.Context, name string) error {
	if _, ok := c.embedder.(embedding.Fitter); ok {
		return c.Recompute(ctx)
	}
	return c.computeCentroids(ctx, []*entry{c.byName[name]})
}

// Recompute refits the embedder on all examples when it supports fitting and
// recomputes every centroid.
func (c *Classifier) Recompute(ctx context.Context) error {
	if c.embedder == nil {
		return nil
	}
	if f, ok := c.embedder.(embedding.Fitter); ok {
		var corpus []string
		for _, e := range c.intents {
			corpus = append(corpus, e.examples...)
		}
		f.Fit(corpus)
	}
	return c.computeCentroids(ctx, c.intents)
}

func (c *Classifier) computeCentroids(ctx context.Context, entries []*entry) error {
	if c.embedder == nil {
		return nil
	}

	var texts []string
	for _, e := range entries {
		texts = append(texts, e.examples...)
	}
	if len(texts) == 0 {
		for _, e := range entries {
			e.centroid = nil
		}
		return nil
	}

	vectors, err := c.embedder.Generate(ctx, texts)
	if err != nil {
		c.logger.Warn("centroid computation failed, embedding tier degraded", "error", err)
		return errors.Wrap(err, "Classifier", "Recompute", "embed examples")
	}

	offset := 0
	for _, e := range entries {
		n := len(e.examples)
		e.centroid = embedding.Mean(vectors[offset : offset+n])
		offset += n
	}
	return nil
}

// Classify resolves the intent of text. It never fails: embedding faults degrade to
// the unknown intent with method default.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	if cl, ok := c.matchPatterns(text); ok {
		return cl
	}
	return c.matchEmbedding(ctx, text)
}

func (c *Classifier) matchPatterns(text string) (Classification, bool) {
	var best *entry
	bestScore := 0
	for _, e := range c.intents {
		score := 0
		for _, re := range e.patterns {
			if re.MatchString(text) {
				score++
			}
		}
		// Strictly greater keeps the earliest registered intent on ties.
		if score > bestScore {
			best, bestScore = e, score
		}
	}
	if best == nil {
		return Classification{}, false
	}

	confidence := min(c.cfg.PatternCap, c.cfg.PatternBase+c.cfg.PatternStep*float64(bestScore))
	return Classification{Intent: best.name, Confidence: confidence, Method: MethodPattern}, true
}

func (c *Classifier) matchEmbedding(ctx context.Context, text string) Classification {
	unknown := Classification{Intent: Unknown, Confidence: 0, Method: MethodDefault}
	if c.embedder == nil {
		return unknown
	}

	vectors, err := c.embedder.Generate(ctx, []string{text})
	if err != nil {
		c.logger.Warn("query embedding failed, falling back to unknown intent", "error", err)
		return unknown
	}
	query := vectors[0]

	var best *entry
	bestSim := 0.0
	for _, e := range c.intents {
		if e.centroid == nil {
			continue
		}
		sim := embedding.CosineSimilarity(query, e.centroid)
		if best == nil || sim > bestSim {
			best, bestSim = e, sim
		}
	}
	if best == nil {
		return unknown
	}

	if bestSim < c.cfg.SimilarityThreshold {
		return Classification{Intent: Unknown, Confidence: 1 - bestSim, Method: MethodDefault}
	}
	return Classification{Intent: best.name, Confidence: bestSim, Method: MethodEmbedding}
}
