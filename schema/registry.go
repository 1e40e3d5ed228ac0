package schema

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Expected totals for a complete insurance domain schema, used by the coverage score.
const (
	expectedEntityTypes       = 15
	expectedRelationshipTypes = 25
)

// Registry owns schema state. It is not safe for concurrent mutation; hosts that
// evolve the schema while reading it must serialize access.
type Registry struct {
	entities      map[string]*EntityType
	entityOrder   []string
	relationships []*RelationshipType
	versions      []Version
	quality       QualityScores
	logger        *slog.Logger
	now           func() time.Time
}

// NewRegistry creates an empty registry with no recorded versions.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entities: make(map[string]*EntityType),
		logger:   logger.With("component", "schema"),
		now:      time.Now,
	}
}

// AddEntityType adds a new entity type. Returns false if the name already exists.
func (r *Registry) AddEntityType(name string, properties map[string]PropertyDef, constraints map[string]any) bool {
	return r.addEntityType(EntityType{Name: name, Properties: properties, Constraints: constraints}) == nil
}

func (r *Registry) addEntityType(et EntityType) error {
	if et.Name == "" {
		return ErrMissingName
	}
	if _, ok := r.entities[et.Name]; ok {
		r.logger.Debug("entity type rejected", "entity_type", et.Name, "reason", ErrEntityTypeExists)
		return ErrEntityTypeExists
	}

	stored := et.clone()
	r.entities[et.Name] = &stored
	r.entityOrder = append(r.entityOrder, et.Name)
	r.changed(fmt.Sprintf("Added entity type: %s", et.Name))
	return nil
}

// AddRelationshipType adds a relationship type between two existing entity types.
// Returns false if either endpoint is missing or the (name, source, target) triple exists.
func (r *Registry) AddRelationshipType(name, source, target string, properties map[string]PropertyDef, constraints map[string]any) bool {
	return r.addRelationshipType(RelationshipType{
		Name: name, Source: source, Target: target, Properties: properties, Constraints: constraints,
	}) == nil
}

func (r *Registry) addRelationshipType(rt RelationshipType) error {
	if rt.Name == "" {
		return ErrMissingName
	}
	for _, endpoint := range []string{rt.Source, rt.Target} {
		if _, ok := r.entities[endpoint]; !ok {
			r.logger.Debug("relationship type rejected",
				"relationship_type", rt.Name, "entity_type", endpoint, "reason", ErrUnknownEntityType)
			return fmt.Errorf("%w: %s", ErrUnknownEntityType, endpoint)
		}
	}
	if r.HasRelationship(rt.Name, rt.Source, rt.Target) {
		r.logger.Debug("relationship type rejected",
			"relationship_type", rt.Name, "source", rt.Source, "target", rt.Target, "reason", ErrRelationshipExists)
		return ErrRelationshipExists
	}

	stored := rt.clone()
	r.relationships = append(r.relationships, &stored)
	r.changed(fmt.Sprintf("Added relationship type: %s (%s -> %s)", rt.Name, rt.Source, rt.Target))
	return nil
}

// AddProperties merges properties into an existing entity type and records one version
// naming every merged property. Returns false for an unknown entity or an empty map.
func (r *Registry) AddProperties(entity string, properties map[string]PropertyDef) bool {
	return r.addProperties(entity, properties) == nil
}

func (r *Registry) addProperties(entity string, properties map[string]PropertyDef) error {
	et, ok := r.entities[entity]
	if !ok {
		r.logger.Debug("property addition rejected", "entity_type", entity, "reason", ErrUnknownEntityType)
		return fmt.Errorf("%w: %s", ErrUnknownEntityType, entity)
	}
	if len(properties) == 0 {
		return ErrNoPropertiesProvided
	}

	if et.Properties == nil {
		et.Properties = make(map[string]PropertyDef, len(properties))
	}
	names := make([]string, 0, len(properties))
	for name, def := range properties {
		def.Enum = slices.Clone(def.Enum)
		et.Properties[name] = def
		names = append(names, name)
	}
	slices.Sort(names)
	r.changed(fmt.Sprintf("Added new properties to %s: %s", entity, strings.Join(names, ", ")))
	return nil
}

// HasEntityType reports whether name is a known entity type.
func (r *Registry) HasEntityType(name string) bool {
	_, ok := r.entities[name]
	return ok
}

// HasRelationship reports whether the (name, source, target) triple exists.
func (r *Registry) HasRelationship(name, source, target string) bool {
	return slices.ContainsFunc(r.relationships, func(rt *RelationshipType) bool {
		return rt.Name == name && rt.Source == source && rt.Target == target
	})
}

// EntityTypes returns entity type names in insertion order.
func (r *Registry) EntityTypes() []string {
	return slices.Clone(r.entityOrder)
}

// EntityType returns a copy of the named entity type.
func (r *Registry) EntityType(name string) (EntityType, bool) {
	et, ok := r.entities[name]
	if !ok {
		return EntityType{}, false
	}
	return et.clone(), true
}

// RelationshipTypes returns copies of all relationship types in insertion order.
func (r *Registry) RelationshipTypes() []RelationshipType {
	out := make([]RelationshipType, len(r.relationships))
	for i, rt := range r.relationships {
		out[i] = rt.clone()
	}
	return out
}

// Versions returns the audit trail.
func (r *Registry) Versions() []Version {
	return slices.Clone(r.versions)
}

// Quality returns the current quality scores.
func (r *Registry) Quality() QualityScores {
	return r.quality
}

// RecordVersion appends a version without a structural change, e.g. "Initial schema creation".
func (r *Registry) RecordVersion(description string) {
	r.versions = append(r.versions, Version{
		Version:           len(r.versions) + 1,
		Timestamp:         r.now(),
		Description:       description,
		EntityCount:       len(r.entities),
		RelationshipCount: len(r.relationships),
	})
}

func (r *Registry) changed(description string) {
	r.recomputeQuality()
	r.RecordVersion(description)
}

func (r *Registry) recomputeQuality() {
	entityCount := len(r.entities)
	relCount := len(r.relationships)

	coverage := min(1.0,
		(float64(entityCount)/expectedEntityTypes+float64(relCount)/expectedRelationshipTypes)/2)

	// Density counts distinct (source, target) pairs, so several relationship types
	// between the same pair contribute one edge.
	var connectivity float64
	if entityCount > 1 {
		pairs := make(map[[2]string]struct{}, relCount)
		for _, rt := range r.relationships {
			pairs[[2]string{rt.Source, rt.Target}] = struct{}{}
		}
		connectivity = float64(len(pairs)) / float64(entityCount*(entityCount-1))
	}

	var completeness float64
	for _, name := range r.entityOrder {
		props := r.entities[name].Properties
		if len(props) == 0 {
			continue
		}
		required := 0
		for _, p := range props {
			if p.Required {
				required++
			}
		}
		completeness += float64(required) / float64(len(props))
	}
	consistency := completeness / float64(max(1, entityCount))

	r.quality = QualityScores{
		Coverage:     coverage,
		Consistency:  consistency,
		Connectivity: connectivity,
		Overall:      (coverage + consistency + connectivity) / 3,
	}
}
