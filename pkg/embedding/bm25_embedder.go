package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// BM25Embedder produces lexical embeddings without any external service.
//
// Terms are hashed into a fixed number of dimensions (feature hashing), weighted with
// BM25 term saturation and IDF, then L2 normalized so cosine similarity applies.
//
// Until Fit is called, every Generate call feeds the processed texts back into the
// document statistics. After Fit, statistics are frozen and embedding is deterministic,
// which is what the intent classifier needs for comparable centroids.
type BM25Embedder struct {
	dimensions int
	k1         float64
	b          float64

	mu             sync.RWMutex
	frozen         bool
	docCount       int
	avgDocLength   float64
	termDocCount   map[string]int
	totalDocLength int
}

// BM25Config configures the BM25 embedder.
type BM25Config struct {
	// Dimensions is the output vector size (default 384).
	Dimensions int
	// K1 controls term frequency saturation (default 1.5).
	K1 float64
	// B controls length normalization (default 0.75).
	B float64
}

// NewBM25Embedder creates a new BM25-based embedder.
func NewBM25Embedder(cfg BM25Config) *BM25Embedder {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 384
	}
	if cfg.K1 == 0 {
		cfg.K1 = 1.5
	}
	if cfg.B == 0 {
		cfg.B = 0.75
	}

	return &BM25Embedder{
		dimensions:   cfg.Dimensions,
		k1:           cfg.K1,
		b:            cfg.B,
		termDocCount: make(map[string]int),
	}
}

// Fit replaces the document statistics with those of corpus and freezes them.
func (e *BM25Embedder) Fit(corpus []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docCount = 0
	e.totalDocLength = 0
	e.avgDocLength = 0
	e.termDocCount = make(map[string]int)
	for _, text := range corpus {
		e.observeLocked(tokenize(text))
	}
	e.frozen = true
}

// Generate creates BM25 embeddings for texts.
func (e *BM25Embedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if i%100 == 99 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		tokens := tokenize(text)
		if len(tokens) == 0 {
			out[i] = make([]float32, e.dimensions)
			continue
		}

		out[i] = e.vector(termFrequencies(tokens), len(tokens))

		e.mu.Lock()
		if !e.frozen {
			e.observeLocked(tokens)
		}
		e.mu.Unlock()
	}
	return out, nil
}

// Dimensions returns the dimensionality of embeddings.
func (e *BM25Embedder) Dimensions() int {
	return e.dimensions
}

// Model returns the model identifier.
func (e *BM25Embedder) Model() string {
	return fmt.Sprintf("bm25-go-k%.1f-b%.2f", e.k1, e.b)
}

// Close is a no-op.
func (e *BM25Embedder) Close() error {
	return nil
}

func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() >= 2 {
			tokens = append(tokens, current.String())
		}
		current.Reset()
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func termFrequencies(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

// observeLocked must be called with mu held for writing.
func (e *BM25Embedder) observeLocked(tokens []string) {
	e.docCount++
	e.totalDocLength += len(tokens)
	e.avgDocLength = float64(e.totalDocLength) / float64(e.docCount)

	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		e.termDocCount[t]++
	}
}

// idfLocked uses the Robertson-Sparck Jones weighting with a small positive floor.
func (e *BM25Embedder) idfLocked(term string) float64 {
	if e.docCount == 0 {
		return 1.0
	}
	df := e.termDocCount[term]
	if df == 0 {
		df = 1
	}
	idf := math.Log((float64(e.docCount-df) + 0.5) / (float64(df) + 0.5))
	if idf < 0.01 {
		idf = 0.01
	}
	return idf
}

func (e *BM25Embedder) vector(tf map[string]int, docLength int) []float32 {
	vec := make([]float32, e.dimensions)

	e.mu.RLock()
	avg := e.avgDocLength
	if avg == 0 {
		avg = float64(docLength)
	}
	for term, freq := range tf {
		num := float64(freq) * (e.k1 + 1)
		den := float64(freq) + e.k1*(1-e.b+e.b*(float64(docLength)/avg))
		vec[e.hashTerm(term)] += float32(e.idfLocked(term) * num / den)
	}
	e.mu.RUnlock()

	l2Normalize(vec)
	return vec
}

func (e *BM25Embedder) hashTerm(term string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return int(h.Sum32() % uint32(e.dimensions))
}
