package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/graphrag/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GRAPHRAG"

// durationKeys lists the duration fields accepted as strings, by section.
var durationKeys = map[string][]string{
	"embedding": {"timeout"},
	"retry":     {"initial_delay", "max_delay"},
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{envPrefix: EnvPrefix}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file over the defaults
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, file layers and environment overrides
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("load layer %s", path))
		}
		if cfg, err = l.mergeFromMap(cfg, raw); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("merge layer %s", path))
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadRaw decodes a JSON or YAML file into a map with duration strings converted
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if isYAML(path) {
		err = yaml.Unmarshal(data, &raw)
	} else {
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// mergeFromMap overrides only the fields present in override
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}
	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func parseDurations(data map[string]any) error {
	for key, v := range data {
		nested, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range durationKeys[key] {
			s, ok := nested[field].(string)
			if !ok {
				continue
			}
			d, err := parseDurationWithDays(s)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", key, field, err)
			}
			nested[field] = d.Nanoseconds()
		}
		if err := parseDurations(nested); err != nil {
			return err
		}
	}
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"GRAPH_PATH":         &cfg.Graph.Path,
		"SCHEMA_PATH":        &cfg.Schema.Path,
		"SCHEMA_EXPORT_PATH": &cfg.Schema.ExportPath,
		"EMBEDDING_PROVIDER": &cfg.Embedding.Provider,
		"EMBEDDING_BASE_URL": &cfg.Embedding.BaseURL,
		"EMBEDDING_MODEL":    &cfg.Embedding.Model,
		"EMBEDDING_API_KEY":  &cfg.Embedding.APIKey,
		"METRICS_PATH":       &cfg.Metrics.Path,
	}
	for suffix, dst := range strs {
		val, err := l.env(suffix)
		if err != nil {
			return err
		}
		if val != "" {
			*dst = val
		}
	}

	if val, err := l.env("METRICS_ENABLED"); err != nil {
		return err
	} else if val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", l.envPrefix+"_METRICS_ENABLED")
		}
		cfg.Metrics.Enabled = enabled
	}
	if val, err := l.env("METRICS_PORT"); err != nil {
		return err
	} else if val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", l.envPrefix+"_METRICS_PORT")
		}
		cfg.Metrics.Port = port
	}
	return nil
}

func (l *Loader) env(suffix string) (string, error) {
	key := l.envPrefix + "_" + suffix
	val := os.Getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		return "", errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "validate environment")
	}
	return val, nil
}
