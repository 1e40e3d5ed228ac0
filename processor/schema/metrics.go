package schema

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/graphrag/metric"
)

// Metrics holds prometheus collectors for schema evolution.
type Metrics struct {
	changes  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	quality  *prometheus.GaugeVec
	version  prometheus.Gauge
}

// NewMetrics creates and registers the evolution metrics. A nil registry disables
// metrics.
func NewMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &Metrics{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "schema",
			Name:      "changes_applied_total",
			Help:      "Schema changes applied by evolution",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphrag",
			Subsystem: "schema",
			Name:      "changes_rejected_total",
			Help:      "Schema proposals above threshold that the registry rejected",
		}, []string{"kind"}),
		quality: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "graphrag",
			Subsystem: "schema",
			Name:      "quality_score",
			Help:      "Schema quality scores",
		}, []string{"score"}),
		version: registry.CoreMetrics().SchemaVersion,
	}

	if err := registry.RegisterCounterVec("schema", "changes_applied_total", m.changes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("schema", "changes_rejected_total", m.rejected); err != nil {
		return nil, err
	}
	if err := registry.RegisterGaugeVec("schema", "quality_score", m.quality); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) record(r *Report) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues("entity_type").Add(float64(len(r.NewEntityTypes)))
	for _, props := range r.NewProperties {
		m.changes.WithLabelValues("property").Add(float64(len(props)))
	}
	m.changes.WithLabelValues("relationship_type").Add(float64(len(r.NewRelationshipTypes)))
	for _, rej := range r.Rejected {
		m.rejected.WithLabelValues(rej.Kind).Inc()
	}

	m.quality.WithLabelValues("coverage").Set(r.Quality.Coverage)
	m.quality.WithLabelValues("consistency").Set(r.Quality.Consistency)
	m.quality.WithLabelValues("connectivity").Set(r.Quality.Connectivity)
	m.quality.WithLabelValues("overall").Set(r.Quality.Overall)
	m.version.Set(float64(r.Version))
}
