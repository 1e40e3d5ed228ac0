package executor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/graphrag/metric"
)

// Metrics holds the executor's prometheus collectors.
type Metrics struct {
	bindings *prometheus.HistogramVec
	errors   prometheus.Counter
}

// NewMetrics creates and registers executor metrics. A nil registry disables metrics.
func NewMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &Metrics{
		bindings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "graphrag",
			Subsystem: "executor",
			Name:      "bindings",
			Help:      "Binding count after each execution step",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"step"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "executor",
			Name:      "errors_total",
			Help:      "Failed query executions",
		}),
	}

	if err := registry.RegisterHistogramVec("executor", "bindings", m.bindings); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("executor", "errors_total", m.errors); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observeSteps(counts []int) {
	if m == nil {
		return
	}
	for i, n := range counts {
		step := "start"
		if i > 0 {
			step = "path_" + strconv.Itoa(i-1)
		}
		m.bindings.WithLabelValues(step).Observe(float64(n))
	}
}

func (m *Metrics) recordError() {
	if m == nil {
		return
	}
	m.errors.Inc()
}
