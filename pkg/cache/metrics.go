package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/graphrag/metric"
)

type cacheOp string

const (
	opHit      cacheOp = "hit"
	opMiss     cacheOp = "miss"
	opSet      cacheOp = "set"
	opDelete   cacheOp = "delete"
	opEviction cacheOp = "eviction"
)

// cacheMetrics exports cache activity. A nil *cacheMetrics records nothing.
type cacheMetrics struct {
	ops  *prometheus.CounterVec
	size prometheus.Gauge
}

func newCacheMetrics(registry *metric.MetricsRegistry, component string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"component": component}
	m := &cacheMetrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "graphrag",
			Subsystem:   "cache",
			Name:        "operations_total",
			ConstLabels: labels,
			Help:        "Cache operations by kind",
		}, []string{"op"}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "graphrag",
			Subsystem:   "cache",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of entries in cache",
		}),
	}

	if err := registry.RegisterCounterVec(component, "cache_operations", m.ops); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(component, "cache_size", m.size); err != nil {
		registry.Unregister(component, "cache_operations")
		return nil, err
	}
	return m, nil
}

func (m *cacheMetrics) record(op cacheOp) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(string(op)).Inc()
}

func (m *cacheMetrics) setSize(n int) {
	if m == nil {
		return
	}
	m.size.Set(float64(n))
}
