package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains engine-wide metrics that do not belong to a single component
type Metrics struct {
	GraphNodes    prometheus.Gauge
	GraphEdges    prometheus.Gauge
	SchemaVersion prometheus.Gauge
	ErrorsTotal   *prometheus.CounterVec
}

// NewMetrics creates the core metric set
func NewMetrics() *Metrics {
	return &Metrics{
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "graphrag",
			Subsystem: "graph",
			Name:      "nodes",
			Help:      "Number of nodes loaded into the property graph store",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "graphrag",
			Subsystem: "graph",
			Name:      "edges",
			Help:      "Number of edges loaded into the property graph store",
		}),
		SchemaVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "graphrag",
			Subsystem: "schema",
			Name:      "version",
			Help:      "Number of recorded schema versions",
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphrag",
			Name:      "errors_total",
			Help:      "Errors by component and class",
		}, []string{"component", "class"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.GraphNodes, m.GraphEdges, m.SchemaVersion, m.ErrorsTotal}
}

// RecordGraphSize sets the graph size gauges
func (m *Metrics) RecordGraphSize(nodes, edges int) {
	if m == nil {
		return
	}
	m.GraphNodes.Set(float64(nodes))
	m.GraphEdges.Set(float64(edges))
}

// RecordError counts an error for a component under its class label
func (m *Metrics) RecordError(component, class string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, class).Inc()
}
