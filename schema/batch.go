package schema

// PropertyAddition merges properties into an existing entity type.
type PropertyAddition struct {
	Entity     string                 `json:"entity"`
	Properties map[string]PropertyDef `json:"properties"`
}

// Batch groups mutations applied in dependency order: entity types first so that
// relationship types between new entity types can succeed.
type Batch struct {
	EntityTypes       []EntityType       `json:"entity_types"`
	Properties        []PropertyAddition `json:"properties"`
	RelationshipTypes []RelationshipType `json:"relationship_types"`
}

// Rejection records a batch item that was not applied.
type Rejection struct {
	Kind   string `json:"kind"` // entity_type, property, relationship_type
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// BatchResult reports exactly which batch items were applied.
type BatchResult struct {
	EntityTypes       []string    `json:"entity_types"`
	Properties        []string    `json:"properties"` // entity names touched
	RelationshipTypes []Triple    `json:"relationship_types"`
	Rejected          []Rejection `json:"rejected,omitempty"`
}

// Applied returns the number of successful mutations.
func (b BatchResult) Applied() int {
	return len(b.EntityTypes) + len(b.Properties) + len(b.RelationshipTypes)
}

// ApplyBatch applies entity types, then property additions, then relationship types.
// Each successful item records its own version.
func (r *Registry) ApplyBatch(b Batch) BatchResult {
	var res BatchResult

	reject := func(kind, name string, err error) {
		res.Rejected = append(res.Rejected, Rejection{Kind: kind, Name: name, Reason: err.Error(), Err: err})
	}

	for _, et := range b.EntityTypes {
		if err := r.addEntityType(et); err != nil {
			reject("entity_type", et.Name, err)
			continue
		}
		res.EntityTypes = append(res.EntityTypes, et.Name)
	}

	for _, pa := range b.Properties {
		if err := r.addProperties(pa.Entity, pa.Properties); err != nil {
			reject("property", pa.Entity, err)
			continue
		}
		res.Properties = append(res.Properties, pa.Entity)
	}

	for _, rt := range b.RelationshipTypes {
		if err := r.addRelationshipType(rt); err != nil {
			reject("relationship_type", rt.Name, err)
			continue
		}
		res.RelationshipTypes = append(res.RelationshipTypes, rt.Triple())
	}

	return res
}
