// Package schema proposes and applies schema changes from observed instance data.
//
// The Analyzer counts labels, relationship triples and properties in a batch and
// proposes what the schema registry does not know yet, each with a frequency-based
// confidence. The Evolver applies the proposals whose confidence reaches a threshold
// through the registry's batch API: entity types first, then new properties of
// existing entity types, then relationship types.
package schema

import (
	"cmp"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/c360/graphrag/graph"
	graphschema "github.com/c360/graphrag/schema"
)

const (
	entityFullConfidence       = 10.0
	relationshipFullConfidence = 5.0
	propertyFullConfidence     = 10.0

	minEntityPropertyCount       = 3
	minRelationshipPropertyCount = 2
	relationshipSampleValues     = 5
)

// EntityProposal proposes a new entity type.
type EntityProposal struct {
	Name       string                      `json:"name"`
	Frequency  int                         `json:"frequency"`
	Confidence float64                     `json:"confidence"`
	Properties map[string]PropertyAnalysis `json:"proposed_properties"`
}

// PropertyProposal proposes a new property of an existing entity type.
type PropertyProposal struct {
	Entity     string           `json:"entity"`
	Name       string           `json:"name"`
	Confidence float64          `json:"confidence"`
	Analysis   PropertyAnalysis `json:"analysis"`
}

// RelationshipProposal proposes a new (name, source, target) relationship type.
type RelationshipProposal struct {
	Name       string                      `json:"name"`
	Source     string                      `json:"source"`
	Target     string                      `json:"target"`
	Frequency  int                         `json:"frequency"`
	Confidence float64                     `json:"confidence"`
	Properties map[string]PropertyAnalysis `json:"proposed_properties"`
}

// Triple returns the identifying triple of the proposal.
func (p RelationshipProposal) Triple() graphschema.Triple {
	return graphschema.Triple{Name: p.Name, Source: p.Source, Target: p.Target}
}

// Proposals is the advisory output of an analysis, in sorted order.
type Proposals struct {
	NewEntityTypes       []EntityProposal              `json:"new_entity_types"`
	NewProperties        map[string][]PropertyProposal `json:"new_property_types"`
	NewRelationshipTypes []RelationshipProposal        `json:"new_relationship_types"`
}

// Empty reports whether nothing was proposed.
func (p *Proposals) Empty() bool {
	return len(p.NewEntityTypes) == 0 && len(p.NewProperties) == 0 && len(p.NewRelationshipTypes) == 0
}

// SchemaReader is the read side of the schema registry the analyzer compares against.
type SchemaReader interface {
	HasEntityType(name string) bool
	EntityType(name string) (graphschema.EntityType, bool)
	HasRelationship(name, source, target string) bool
}

// Analyzer proposes schema changes. It never mutates the schema.
type Analyzer struct {
	schema SchemaReader
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer comparing batches against s.
func NewAnalyzer(s SchemaReader, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{schema: s, logger: logger.With("component", "schema-analyzer")}
}

type labelStats struct {
	count int
	props map[string]*observation
}

type tripleStats struct {
	count int
	props map[string]*observation
}

// Analyze proposes new entity types, new properties of existing entity types and
// new relationship types found in data. Edges resolve endpoint labels from the
// primary label of nodes in the same batch; edges with an unresolved endpoint are
// ignored.
func (a *Analyzer) Analyze(data graph.InstanceData) *Proposals {
	labels := make(map[string]*labelStats)
	primary := make(map[string]string, len(data.Nodes))

	for _, n := range data.Nodes {
		if _, seen := primary[n.ID]; !seen && len(n.Labels) > 0 {
			primary[n.ID] = n.Labels[0]
		}
		for _, label := range n.Labels {
			ls, ok := labels[label]
			if !ok {
				ls = &labelStats{props: make(map[string]*observation)}
				labels[label] = ls
			}
			ls.count++
			observeAll(ls.props, n.Properties, maxSampleValues)
		}
	}

	triples := make(map[graphschema.Triple]*tripleStats)
	for _, e := range data.Edges {
		src, tgt := primary[e.Source], primary[e.Target]
		if src == "" || tgt == "" || e.Type == "" {
			continue
		}
		key := graphschema.Triple{Name: e.Type, Source: src, Target: tgt}
		ts, ok := triples[key]
		if !ok {
			ts = &tripleStats{props: make(map[string]*observation)}
			triples[key] = ts
		}
		ts.count++
		observeAll(ts.props, e.Properties, relationshipSampleValues)
	}

	p := &Proposals{NewProperties: make(map[string][]PropertyProposal)}

	for _, label := range slices.Sorted(maps.Keys(labels)) {
		ls := labels[label]
		if a.schema.HasEntityType(label) {
			if props := a.newProperties(label, ls); len(props) > 0 {
				p.NewProperties[label] = props
			}
			continue
		}
		p.NewEntityTypes = append(p.NewEntityTypes, EntityProposal{
			Name:       label,
			Frequency:  ls.count,
			Confidence: confidence(ls.count, entityFullConfidence),
			Properties: common(ls.props, minEntityPropertyCount),
		})
	}

	for key, ts := range triples {
		if a.schema.HasRelationship(key.Name, key.Source, key.Target) {
			continue
		}
		p.NewRelationshipTypes = append(p.NewRelationshipTypes, RelationshipProposal{
			Name:       key.Name,
			Source:     key.Source,
			Target:     key.Target,
			Frequency:  ts.count,
			Confidence: confidence(ts.count, relationshipFullConfidence),
			Properties: common(ts.props, minRelationshipPropertyCount),
		})
	}
	slices.SortFunc(p.NewRelationshipTypes, func(x, y RelationshipProposal) int {
		return cmp.Or(cmp.Compare(x.Name, y.Name), cmp.Compare(x.Source, y.Source), cmp.Compare(x.Target, y.Target))
	})

	a.logger.Debug("instance data analyzed",
		"nodes", len(data.Nodes), "edges", len(data.Edges),
		"entity_types", len(p.NewEntityTypes), "property_sets", len(p.NewProperties),
		"relationship_types", len(p.NewRelationshipTypes))
	return p
}

func (a *Analyzer) newProperties(label string, ls *labelStats) []PropertyProposal {
	et, _ := a.schema.EntityType(label)
	var out []PropertyProposal
	for _, name := range slices.Sorted(maps.Keys(ls.props)) {
		o := ls.props[name]
		if _, known := et.Properties[name]; known || o.count < minEntityPropertyCount {
			continue
		}
		out = append(out, PropertyProposal{
			Entity:     label,
			Name:       name,
			Confidence: confidence(o.count, propertyFullConfidence),
			Analysis:   analyze(name, o),
		})
	}
	return out
}

func observeAll(into map[string]*observation, props map[string]any, sampleLimit int) {
	for name, v := range props {
		o, ok := into[name]
		if !ok {
			o = newObservation(sampleLimit)
			into[name] = o
		}
		o.observe(v)
	}
}

func common(props map[string]*observation, minCount int) map[string]PropertyAnalysis {
	out := make(map[string]PropertyAnalysis)
	for name, o := range props {
		if o.count >= minCount {
			out[name] = analyze(name, o)
		}
	}
	return out
}

// confidence grows linearly with the observation count up to 1 at full.
func confidence(count int, full float64) float64 {
	return math.Min(1, float64(count)/full)
}
