package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/pkg/retry"
	"github.com/c360/graphrag/processor/query"
	"github.com/c360/graphrag/processor/query/intent"
	evolution "github.com/c360/graphrag/processor/schema"
)

// Embedding providers
const (
	ProviderNone = "none" // pattern tier only
	ProviderBM25 = "bm25" // local lexical embeddings
	ProviderHTTP = "http" // OpenAI-compatible embedding service
)

// Config is the complete graphrag configuration.
type Config struct {
	Graph     GraphConfig     `json:"graph" yaml:"graph"`
	Schema    SchemaConfig    `json:"schema" yaml:"schema"`
	Intent    intent.Config   `json:"intent" yaml:"intent"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Query     query.Config    `json:"query" yaml:"query"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// GraphConfig locates the instance data loaded into the store.
type GraphConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// SchemaConfig locates the base schema and where evolved schemas are written.
type SchemaConfig struct {
	// Path of the base schema; the default insurance schema when empty or unreadable.
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	ExportPath string `json:"export_path,omitempty" yaml:"export_path,omitempty"`
	// EvolutionThreshold is the confidence a proposal needs to be applied.
	EvolutionThreshold float64 `json:"evolution_threshold" yaml:"evolution_threshold"`
}

// EmbeddingConfig selects and tunes the embedder behind the intent classifier.
type EmbeddingConfig struct {
	Provider   string        `json:"provider" yaml:"provider"`
	BaseURL    string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey     string        `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	Dimensions int           `json:"dimensions" yaml:"dimensions"`
	// CacheSize bounds the memoized embeddings; 0 disables memoization.
	CacheSize int `json:"cache_size" yaml:"cache_size"`
	// RateLimit caps http embedding requests per second; 0 means unlimited.
	RateLimit float64      `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	Retry     retry.Config `json:"retry" yaml:"retry"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Schema: SchemaConfig{EvolutionThreshold: evolution.DefaultThreshold},
		Intent: intent.DefaultConfig(),
		Embedding: EmbeddingConfig{
			Provider:   ProviderBM25,
			Timeout:    30 * time.Second,
			Dimensions: 384,
			CacheSize:  1000,
			Retry:      retry.DefaultConfig(),
		},
		Query:   query.DefaultConfig(),
		Metrics: MetricsConfig{Port: 9090, Path: "/metrics"},
	}
}

// Validate checks ranges and required settings.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.WrapInvalid(fmt.Errorf(format+": %w", append(args, errors.ErrInvalidConfig)...),
			"Config", "Validate", "validate configuration")
	}

	if !unitInterval(c.Schema.EvolutionThreshold) {
		return invalid("schema.evolution_threshold %v outside [0, 1]", c.Schema.EvolutionThreshold)
	}
	if !unitInterval(c.Intent.SimilarityThreshold) {
		return invalid("intent.similarity_threshold %v outside [0, 1]", c.Intent.SimilarityThreshold)
	}
	if c.Intent.PatternBase < 0 || c.Intent.PatternStep < 0 || c.Intent.PatternCap < c.Intent.PatternBase {
		return invalid("intent pattern confidence needs 0 <= base <= cap and step >= 0")
	}

	switch c.Embedding.Provider {
	case "", ProviderNone, ProviderBM25:
	case ProviderHTTP:
		if c.Embedding.BaseURL == "" || c.Embedding.Model == "" {
			return invalid("embedding provider http needs base_url and model")
		}
	default:
		return invalid("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.CacheSize < 0 || c.Embedding.Dimensions < 0 || c.Embedding.Timeout < 0 || c.Embedding.RateLimit < 0 {
		return invalid("embedding cache_size, dimensions, timeout and rate_limit cannot be negative")
	}

	if err := c.Query.Validate(); err != nil {
		return err
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return invalid("metrics.port %d out of range", c.Metrics.Port)
	}
	return nil
}

func unitInterval(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}

// SaveToFile writes the configuration, as YAML for .yaml and .yml paths.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err == nil && isYAML(path) {
		// Keys follow the json tags so that a saved file loads back unchanged.
		var m map[string]any
		if err = json.Unmarshal(data, &m); err == nil {
			integralNumbers(m)
			data, err = yaml.Marshal(m)
		}
	}
	if err != nil {
		return errors.Wrap(err, "Config", "SaveToFile", "encode configuration")
	}
	return safeWriteFile(path, data)
}

// String returns the configuration as JSON with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.Embedding.APIKey != "" {
		masked.Embedding.APIKey = "****"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// integralNumbers turns whole float64 values into int64 so YAML writes durations
// and counts as plain integers.
func integralNumbers(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case float64:
			if val == math.Trunc(val) && math.Abs(val) < math.MaxInt64 {
				m[k] = int64(val)
			}
		case map[string]any:
			integralNumbers(val)
		}
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
