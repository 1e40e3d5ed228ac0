package cache

import (
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/graphrag/metric"
)

func TestLRU_WithMetrics(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	c, err := NewLRU[[]float32](1, WithMetrics[[]float32](reg, "embedding"))
	require.NoError(t, err)

	lru := c.(*lruCache[[]float32])
	require.NotNil(t, lru.metrics)

	_, _ = c.Set("q1", []float32{1})
	_, _ = c.Get("q1")
	_, _ = c.Get("q2")
	_, _ = c.Set("q2", []float32{2})

	assert.Equal(t, 1.0, promtest.ToFloat64(lru.metrics.ops.WithLabelValues("hit")))
	assert.Equal(t, 1.0, promtest.ToFloat64(lru.metrics.ops.WithLabelValues("miss")))
	assert.Equal(t, 2.0, promtest.ToFloat64(lru.metrics.ops.WithLabelValues("set")))
	assert.Equal(t, 1.0, promtest.ToFloat64(lru.metrics.ops.WithLabelValues("eviction")))
	assert.Equal(t, 1.0, promtest.ToFloat64(lru.metrics.size))
}

func TestLRU_WithMetricsDuplicateComponent(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	_, err := NewLRU[int](1, WithMetrics[int](reg, "dup"))
	require.NoError(t, err)

	_, err = NewLRU[int](1, WithMetrics[int](reg, "dup"))
	assert.Error(t, err)
}

func TestLRU_WithMetricsNilRegistry(t *testing.T) {
	c, err := NewLRU[int](1, WithMetrics[int](nil, "x"))
	require.NoError(t, err)
	assert.Nil(t, c.(*lruCache[int]).metrics)
}
