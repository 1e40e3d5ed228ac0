package query

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/graphrag/metric"
)

// Metrics holds prometheus collectors for the query pipeline.
type Metrics struct {
	queryTotal    *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	resultCount   prometheus.Histogram
	intentMethod  *prometheus.CounterVec
	feedback      prometheus.Counter
}

// NewMetrics creates and registers the pipeline metrics. A nil registry disables
// metrics.
func NewMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &Metrics{
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphrag",
			Name:      "query_total",
			Help:      "Processed queries by intent and outcome",
		}, []string{"intent", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "graphrag",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query processing time",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"intent"}),
		resultCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "graphrag",
			Name:      "query_result_count",
			Help:      "Rows matched per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		intentMethod: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphrag",
			Name:      "intent_classifications_total",
			Help:      "Intent classifications by resolving tier",
		}, []string{"method"}),
		feedback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graphrag",
			Name:      "feedback_examples_added_total",
			Help:      "Intent examples added from feedback",
		}),
	}

	if err := registry.RegisterCounterVec("query", "query_total", m.queryTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("query", "query_duration_seconds", m.queryDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram("query", "query_result_count", m.resultCount); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("query", "intent_classifications_total", m.intentMethod); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("query", "feedback_examples_added_total", m.feedback); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) recordQuery(r *Response, count int) {
	if m == nil {
		return
	}
	status := "success"
	switch {
	case r.Error != "":
		status = "error"
	case !r.Success:
		status = "no_result"
	}
	m.queryTotal.WithLabelValues(r.Intent, status).Inc()
	m.queryDuration.WithLabelValues(r.Intent).Observe(r.Duration.Seconds())
	m.resultCount.Observe(float64(count))
	m.intentMethod.WithLabelValues(r.Method).Inc()
}

func (m *Metrics) recordFeedback(added int) {
	if m == nil {
		return
	}
	m.feedback.Add(float64(added))
}

