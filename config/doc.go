// Package config loads graphrag configuration.
//
// Configuration is built in layers: built-in defaults, then each file added with
// AddLayer in order, then GRAPHRAG_* environment variables. Files may be JSON or
// YAML; nested maps are deep merged so a layer only overrides the keys it names.
// Durations may be written as strings ("30s", "2m", "1d").
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.yaml")
//	loader.AddLayer("configs/local.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// Environment overrides:
//
//	GRAPHRAG_GRAPH_PATH            graph.path
//	GRAPHRAG_SCHEMA_PATH           schema.path
//	GRAPHRAG_SCHEMA_EXPORT_PATH    schema.export_path
//	GRAPHRAG_EMBEDDING_PROVIDER    embedding.provider
//	GRAPHRAG_EMBEDDING_BASE_URL    embedding.base_url
//	GRAPHRAG_EMBEDDING_MODEL       embedding.model
//	GRAPHRAG_EMBEDDING_API_KEY     embedding.api_key
//	GRAPHRAG_METRICS_ENABLED       metrics.enabled
//	GRAPHRAG_METRICS_PORT          metrics.port
package config
