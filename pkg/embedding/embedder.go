// Package embedding provides the text embedding collaborator used by intent classification.
//
// Two providers are available: a local BM25 feature-hashing embedder that needs no
// network, and an HTTP embedder for any OpenAI-compatible embedding service. Either can
// be wrapped in a CachedEmbedder so that each distinct text is embedded at most once.
package embedding

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Generate creates embeddings for the given texts, one vector per text in order.
	Generate(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of produced vectors.
	Dimensions() int

	// Model returns the model identifier, used in logs.
	Model() string

	Close() error
}

// Fitter is implemented by embedders whose vectors depend on corpus statistics.
// Fit freezes those statistics so repeated calls embed the same text identically.
type Fitter interface {
	Fit(corpus []string)
}
