package schema

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"

	cerrors "github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/graph"
	graphschema "github.com/c360/graphrag/schema"
)

// DefaultThreshold is the confidence a proposal needs to be applied automatically.
const DefaultThreshold = 0.7

// AppliedEntity is an entity type added by an evolution.
type AppliedEntity struct {
	Name       string                             `json:"name"`
	Properties map[string]graphschema.PropertyDef `json:"properties"`
	Confidence float64                            `json:"confidence"`
}

// AppliedProperty is a property merged into an existing entity type.
type AppliedProperty struct {
	Name       string                  `json:"name"`
	Definition graphschema.PropertyDef `json:"definition"`
	Confidence float64                 `json:"confidence"`
}

// AppliedRelationship is a relationship type added by an evolution.
type AppliedRelationship struct {
	Name       string                             `json:"name"`
	Source     string                             `json:"source"`
	Target     string                             `json:"target"`
	Properties map[string]graphschema.PropertyDef `json:"properties"`
	Confidence float64                            `json:"confidence"`
}

// Report separates what an evolution applied from what it proposed.
type Report struct {
	Threshold            float64                      `json:"threshold"`
	NewEntityTypes       []AppliedEntity              `json:"new_entity_types"`
	NewProperties        map[string][]AppliedProperty `json:"new_property_types"`
	NewRelationshipTypes []AppliedRelationship        `json:"new_relationship_types"`
	Rejected             []graphschema.Rejection      `json:"rejected,omitempty"`
	Proposals            *Proposals                   `json:"proposals"`
	Quality              graphschema.QualityScores    `json:"quality_scores"`
	Version              int                          `json:"version"`
}

// Applied returns the number of applied changes; property additions count per entity.
func (r *Report) Applied() int {
	return len(r.NewEntityTypes) + len(r.NewProperties) + len(r.NewRelationshipTypes)
}

// Evolver applies analyzer proposals to a schema registry.
type Evolver struct {
	registry *graphschema.Registry
	analyzer *Analyzer
	metrics  *Metrics
	logger   *slog.Logger
}

// NewEvolver creates an evolver mutating registry. metrics may be nil.
func NewEvolver(registry *graphschema.Registry, metrics *Metrics, logger *slog.Logger) *Evolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evolver{
		registry: registry,
		analyzer: NewAnalyzer(registry, logger),
		metrics:  metrics,
		logger:   logger.With("component", "schema-evolver"),
	}
}

// Analyzer returns the analyzer the evolver proposes with.
func (e *Evolver) Analyzer() *Analyzer {
	return e.analyzer
}

// Evolve analyzes data and applies every proposal whose confidence is at least
// threshold. Relationship types whose endpoints are still unknown after the entity
// types were added are rejected and reported.
func (e *Evolver) Evolve(data graph.InstanceData, threshold float64) (*Report, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, cerrors.WrapInvalid(
			fmt.Errorf("threshold %v outside [0, 1]: %w", threshold, cerrors.ErrInvalidData),
			"Evolver", "Evolve", "validate threshold")
	}

	proposals := e.analyzer.Analyze(data)
	report := &Report{
		Threshold:     threshold,
		NewProperties: make(map[string][]AppliedProperty),
		Proposals:     proposals,
	}

	batch, plan := e.plan(proposals, threshold)
	result := e.registry.ApplyBatch(batch)
	report.Rejected = result.Rejected

	for _, name := range result.EntityTypes {
		report.NewEntityTypes = append(report.NewEntityTypes, plan.entities[name])
	}
	for _, entity := range result.Properties {
		report.NewProperties[entity] = plan.properties[entity]
	}
	for _, t := range result.RelationshipTypes {
		report.NewRelationshipTypes = append(report.NewRelationshipTypes, plan.relationships[t])
	}

	report.Quality = e.registry.Quality()
	report.Version = len(e.registry.Versions())
	e.metrics.record(report)

	for _, r := range report.Rejected {
		e.logger.Debug("proposal rejected", "kind", r.Kind, "name", r.Name, "reason", r.Reason)
	}
	e.logger.Info("schema evolved",
		"threshold", threshold,
		"entity_types", len(report.NewEntityTypes),
		"property_sets", len(report.NewProperties),
		"relationship_types", len(report.NewRelationshipTypes),
		"rejected", len(report.Rejected),
		"version", report.Version)
	return report, nil
}

type evolutionPlan struct {
	entities      map[string]AppliedEntity
	properties    map[string][]AppliedProperty
	relationships map[graphschema.Triple]AppliedRelationship
}

func (e *Evolver) plan(p *Proposals, threshold float64) (graphschema.Batch, evolutionPlan) {
	var batch graphschema.Batch
	plan := evolutionPlan{
		entities:      make(map[string]AppliedEntity),
		properties:    make(map[string][]AppliedProperty),
		relationships: make(map[graphschema.Triple]AppliedRelationship),
	}

	for _, ep := range p.NewEntityTypes {
		if ep.Confidence < threshold {
			continue
		}
		props := definitions(ep.Properties)
		batch.EntityTypes = append(batch.EntityTypes, graphschema.EntityType{Name: ep.Name, Properties: props})
		plan.entities[ep.Name] = AppliedEntity{Name: ep.Name, Properties: props, Confidence: ep.Confidence}
	}

	for _, entity := range slices.Sorted(maps.Keys(p.NewProperties)) {
		props := make(map[string]graphschema.PropertyDef)
		for _, pp := range p.NewProperties[entity] {
			if pp.Confidence < threshold {
				continue
			}
			def := pp.Analysis.Definition()
			props[pp.Name] = def
			plan.properties[entity] = append(plan.properties[entity], AppliedProperty{
				Name: pp.Name, Definition: def, Confidence: pp.Confidence,
			})
		}
		if len(props) > 0 {
			batch.Properties = append(batch.Properties, graphschema.PropertyAddition{Entity: entity, Properties: props})
		}
	}

	for _, rp := range p.NewRelationshipTypes {
		if rp.Confidence < threshold {
			continue
		}
		props := definitions(rp.Properties)
		batch.RelationshipTypes = append(batch.RelationshipTypes, graphschema.RelationshipType{
			Name: rp.Name, Source: rp.Source, Target: rp.Target, Properties: props,
		})
		plan.relationships[rp.Triple()] = AppliedRelationship{
			Name: rp.Name, Source: rp.Source, Target: rp.Target, Properties: props, Confidence: rp.Confidence,
		}
	}
	return batch, plan
}

func definitions(analyses map[string]PropertyAnalysis) map[string]graphschema.PropertyDef {
	out := make(map[string]graphschema.PropertyDef, len(analyses))
	for name, a := range analyses {
		out[name] = a.Definition()
	}
	return out
}
