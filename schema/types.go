// Package schema holds the versioned entity/relationship schema of the knowledge graph.
//
// A Registry is the single owner of schema state. Every structural mutation goes
// through AddEntityType, AddRelationshipType, AddProperties or ApplyBatch; each
// successful mutation appends a Version to the audit trail and recomputes the
// QualityScores. Versions are never removed.
package schema

import (
	"errors"
	"maps"
	"slices"
	"time"
)

// Sentinel errors describing why a mutation was rejected.
var (
	ErrEntityTypeExists     = errors.New("entity type already exists")
	ErrUnknownEntityType    = errors.New("entity type does not exist")
	ErrRelationshipExists   = errors.New("relationship type already exists between source and target")
	ErrMissingName          = errors.New("missing name")
	ErrNoPropertiesProvided = errors.New("no properties provided")
)

// Property types produced by inference and used by the default schema.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeDate    = "date"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeNull    = "null"
)

// PropertyDef describes one property of an entity or relationship type.
type PropertyDef struct {
	Type     string   `json:"type" yaml:"type"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Enum     []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// EntityType is a node type of the schema graph.
type EntityType struct {
	Name        string                 `json:"name" yaml:"name"`
	Properties  map[string]PropertyDef `json:"properties" yaml:"properties"`
	Constraints map[string]any         `json:"constraints" yaml:"constraints"`
}

// RelationshipType is a typed edge between two entity types.
type RelationshipType struct {
	Name        string                 `json:"name" yaml:"name"`
	Source      string                 `json:"source" yaml:"source"`
	Target      string                 `json:"target" yaml:"target"`
	Properties  map[string]PropertyDef `json:"properties" yaml:"properties"`
	Constraints map[string]any         `json:"constraints" yaml:"constraints"`
}

// Triple identifies a relationship type. Names are not globally unique.
type Triple struct {
	Name   string `json:"name" yaml:"name"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Triple returns the identifying (name, source, target) of r.
func (r RelationshipType) Triple() Triple {
	return Triple{Name: r.Name, Source: r.Source, Target: r.Target}
}

// Version is one append-only audit record.
type Version struct {
	Version           int       `json:"version" yaml:"version"`
	Timestamp         time.Time `json:"timestamp" yaml:"timestamp"`
	Description       string    `json:"description" yaml:"description"`
	EntityCount       int       `json:"entity_count" yaml:"entity_count"`
	RelationshipCount int       `json:"relationship_count" yaml:"relationship_count"`
}

// QualityScores are derived from the schema shape and recomputed after every mutation.
type QualityScores struct {
	Coverage     float64 `json:"coverage" yaml:"coverage"`
	Consistency  float64 `json:"consistency" yaml:"consistency"`
	Connectivity float64 `json:"connectivity" yaml:"connectivity"`
	Overall      float64 `json:"overall" yaml:"overall"`
}

func cloneDefs(p map[string]PropertyDef) map[string]PropertyDef {
	out := make(map[string]PropertyDef, len(p))
	for k, v := range p {
		v.Enum = slices.Clone(v.Enum)
		out[k] = v
	}
	return out
}

func cloneConstraints(c map[string]any) map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return maps.Clone(c)
}

func (e EntityType) clone() EntityType {
	return EntityType{Name: e.Name, Properties: cloneDefs(e.Properties), Constraints: cloneConstraints(e.Constraints)}
}

func (r RelationshipType) clone() RelationshipType {
	return RelationshipType{
		Name:        r.Name,
		Source:      r.Source,
		Target:      r.Target,
		Properties:  cloneDefs(r.Properties),
		Constraints: cloneConstraints(r.Constraints),
	}
}
