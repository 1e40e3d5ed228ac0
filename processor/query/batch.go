package query

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ProcessBatch answers texts concurrently, at most concurrency at a time, and returns
// the responses in input order. concurrency <= 0 uses GOMAXPROCS.
func (p *Processor) ProcessBatch(ctx context.Context, texts []string, userContext map[string]any, concurrency int) []Response {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	out := make([]Response, len(texts))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, text := range texts {
		g.Go(func() error {
			out[i] = p.ProcessQuery(ctx, text, userContext)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Debug("batch processed", "queries", len(texts), "concurrency", concurrency)
	return out
}
