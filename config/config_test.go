package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/graphrag/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.7, cfg.Schema.EvolutionThreshold)
	assert.Equal(t, 0.6, cfg.Intent.SimilarityThreshold)
	assert.Equal(t, ProviderBM25, cfg.Embedding.Provider)
	assert.Equal(t, 10, cfg.Query.MaxHistory)
	assert.Equal(t, 3, cfg.Query.MaxFollowUps)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoader_JSONLayer(t *testing.T) {
	path := writeFile(t, "graphrag.json", `{
		"graph": {"path": "data/graph.json"},
		"schema": {"evolution_threshold": 0.5},
		"embedding": {"timeout": "5s", "retry": {"max_attempts": 5, "initial_delay": "50ms"}},
		"query": {"max_history": 25}
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "data/graph.json", cfg.Graph.Path)
	assert.Equal(t, 0.5, cfg.Schema.EvolutionThreshold)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 5, cfg.Embedding.Retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Embedding.Retry.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.Embedding.Retry.MaxDelay, "unset keys keep defaults")
	assert.Equal(t, 25, cfg.Query.MaxHistory)
	assert.Equal(t, 3, cfg.Query.MaxFollowUps)
	assert.Equal(t, 0.9, cfg.Intent.PatternCap)
}

func TestLoader_LayersMergeInOrder(t *testing.T) {
	base := writeFile(t, "base.yaml", `
schema:
  path: schemas/base.json
  evolution_threshold: 0.6
embedding:
  provider: http
  base_url: http://localhost:8082
  model: all-minilm
metrics:
  enabled: true
  port: 9100
`)
	override := writeFile(t, "local.json", `{"embedding": {"model": "bge-small", "timeout": "1m"}, "metrics": {"port": 9200}}`)

	l := NewLoader()
	l.AddLayer(base)
	l.AddLayer(override)
	l.EnableValidation(true)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "schemas/base.json", cfg.Schema.Path)
	assert.Equal(t, 0.6, cfg.Schema.EvolutionThreshold)
	assert.Equal(t, ProviderHTTP, cfg.Embedding.Provider)
	assert.Equal(t, "http://localhost:8082", cfg.Embedding.BaseURL)
	assert.Equal(t, "bge-small", cfg.Embedding.Model)
	assert.Equal(t, time.Minute, cfg.Embedding.Timeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9200, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("GRAPHRAG_GRAPH_PATH", "/data/graph.json")
	t.Setenv("GRAPHRAG_EMBEDDING_PROVIDER", "http")
	t.Setenv("GRAPHRAG_EMBEDDING_BASE_URL", "https://api.example.com/v1")
	t.Setenv("GRAPHRAG_EMBEDDING_MODEL", "text-embedding-3-small")
	t.Setenv("GRAPHRAG_EMBEDDING_API_KEY", "secret")
	t.Setenv("GRAPHRAG_METRICS_ENABLED", "true")
	t.Setenv("GRAPHRAG_METRICS_PORT", "9300")

	l := NewLoader()
	l.EnableValidation(true)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/graph.json", cfg.Graph.Path)
	assert.Equal(t, ProviderHTTP, cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9300, cfg.Metrics.Port)

	assert.NotContains(t, cfg.String(), "secret")
	assert.Equal(t, "secret", cfg.Embedding.APIKey, "String does not mutate the config")
}

func TestLoader_BadEnvValue(t *testing.T) {
	t.Setenv("GRAPHRAG_METRICS_PORT", "ninety")
	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"wrong extension", "graphrag.toml", `a = 1`},
		{"malformed json", "bad.json", `{"graph": {`},
		{"malformed yaml", "bad.yaml", "graph: [unclosed"},
		{"bad duration", "dur.json", `{"embedding": {"timeout": "soon"}}`},
		{"too deep", "deep.json", strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadFile(writeFile(t, tt.file, tt.body))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}

	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigNotFound)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Schema.EvolutionThreshold = 1.2 }},
		{"similarity negative", func(c *Config) { c.Intent.SimilarityThreshold = -0.1 }},
		{"cap below base", func(c *Config) { c.Intent.PatternCap = 0.5 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "magic" }},
		{"http without url", func(c *Config) { c.Embedding.Provider = ProviderHTTP; c.Embedding.Model = "m" }},
		{"negative cache", func(c *Config) { c.Embedding.CacheSize = -1 }},
		{"negative rate limit", func(c *Config) { c.Embedding.RateLimit = -2 }},
		{"too many follow-ups", func(c *Config) { c.Query.MaxFollowUps = 4 }},
		{"metrics port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	for _, name := range []string{"saved.json", "saved.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Graph.Path = "graph.json"
			cfg.Embedding.Timeout = 45 * time.Second
			cfg.Query.MaxHistory = 7

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := NewLoader().LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestValidateJSONDepth(t *testing.T) {
	assert.NoError(t, validateJSONDepth([]byte(`{"a": "[[[", "b": [1, {"c": "\"}"}]}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a": [1]}}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a": 1`)))
}

func TestParseDurationWithDays(t *testing.T) {
	d, err := parseDurationWithDays("14d")
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, d)

	d, err = parseDurationWithDays("90s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = parseDurationWithDays("xd")
	assert.Error(t, err)
}
