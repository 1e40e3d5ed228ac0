package embedding

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/pkg/cache"
)

// CachedEmbedder memoizes vectors per distinct text.
//
// Concurrent requests for the same uncached text share a single upstream call.
// Failed calls are not cached.
type CachedEmbedder struct {
	inner Embedder
	cache cache.Cache[[]float32]
	group singleflight.Group
}

// NewCachedEmbedder wraps inner with the given cache.
func NewCachedEmbedder(inner Embedder, c cache.Cache[[]float32]) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c}
}

// Generate returns cached vectors where available and embeds the rest in one batch.
func (c *CachedEmbedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []int
	for i, text := range texts {
		if v, ok := c.cache.Get(ContentHash(text)); ok {
			out[i] = v
			continue
		}
		missing = append(missing, i)
	}

	switch len(missing) {
	case 0:
		return out, nil
	case 1:
		v, err := c.one(ctx, texts[missing[0]])
		if err != nil {
			return nil, err
		}
		out[missing[0]] = v
		return out, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vecs, err := c.inner.Generate(ctx, batch)
	if err != nil {
		return nil, errors.Wrap(err, "CachedEmbedder", "Generate", "embed batch")
	}
	for j, i := range missing {
		out[i] = vecs[j]
		if _, err := c.cache.Set(ContentHash(texts[i]), vecs[j]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *CachedEmbedder) one(ctx context.Context, text string) ([]float32, error) {
	key := ContentHash(text)
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		vecs, err := c.inner.Generate(ctx, []string{text})
		if err != nil {
			return nil, errors.Wrap(err, "CachedEmbedder", "Generate", "embed text")
		}
		if _, err := c.cache.Set(key, vecs[0]); err != nil {
			return nil, err
		}
		return vecs[0], nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Fit forwards to the wrapped embedder when it depends on corpus statistics.
// The cache is cleared because vectors computed before Fit are no longer comparable.
func (c *CachedEmbedder) Fit(corpus []string) {
	f, ok := c.inner.(Fitter)
	if !ok {
		return
	}
	f.Fit(corpus)
	_ = c.cache.Clear()
}

// Stats exposes the memoization statistics.
func (c *CachedEmbedder) Stats() *cache.Statistics {
	return c.cache.Stats()
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *CachedEmbedder) Model() string   { return c.inner.Model() }

// Close closes both the cache and the wrapped embedder.
func (c *CachedEmbedder) Close() error {
	_ = c.cache.Close()
	return c.inner.Close()
}
