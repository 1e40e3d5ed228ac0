package cache

import (
	"github.com/c360/graphrag/metric"
)

// Option configures cache behavior.
type Option[V any] func(*cacheOptions[V])

type cacheOptions[V any] struct {
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
	evictCallback EvictCallback[V]
}

// WithMetrics exports cache statistics to prometheus under the given component label.
// A nil registry or empty component is ignored.
func WithMetrics[V any](registry *metric.MetricsRegistry, component string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && component != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = component
		}
	}
}

// WithEvictionCallback sets a callback invoked for every entry that leaves the cache.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
