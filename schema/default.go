package schema

import "log/slog"

// InitialVersionDescription is recorded once a registry has been constructed.
const InitialVersionDescription = "Initial schema creation"

// DefaultDocument returns the built-in insurance domain schema.
func DefaultDocument() Document {
	str := func(required bool, enum ...string) PropertyDef {
		return PropertyDef{Type: TypeString, Required: required, Enum: enum}
	}
	date := func(required bool) PropertyDef { return PropertyDef{Type: TypeDate, Required: required} }
	num := func(required bool) PropertyDef { return PropertyDef{Type: TypeNumber, Required: required} }
	card := func(c string) map[string]any { return map[string]any{"cardinality": c} }

	return Document{
		EntityTypes: []EntityType{
			{Name: "Policy", Properties: map[string]PropertyDef{
				"policy_number":   str(true),
				"effective_date":  date(true),
				"expiration_date": date(true),
				"status":          str(false, "active", "expired", "cancelled"),
			}},
			{Name: "Insured", Properties: map[string]PropertyDef{
				"name":          str(true),
				"id_number":     str(true),
				"date_of_birth": date(false),
				"contact_info":  {Type: TypeObject},
			}},
			{Name: "Coverage", Properties: map[string]PropertyDef{
				"type":       str(true),
				"limit":      num(false),
				"deductible": num(false),
			}},
			{Name: "Claim", Properties: map[string]PropertyDef{
				"claim_number": str(true),
				"date_of_loss": date(true),
				"status":       str(false, "open", "under_review", "approved", "denied", "closed"),
				"amount":       num(false),
			}},
			{Name: "Premium", Properties: map[string]PropertyDef{
				"amount":            num(true),
				"payment_frequency": str(false, "monthly", "quarterly", "annually"),
				"due_date":          date(false),
			}},
			{Name: "Definition", Properties: map[string]PropertyDef{
				"term":    str(true),
				"meaning": str(true),
				"aliases": {Type: TypeArray},
			}},
		},
		RelationshipTypes: []RelationshipType{
			{Name: "HAS_COVERAGE", Source: "Policy", Target: "Coverage",
				Properties: map[string]PropertyDef{"added_date": date(false)}, Constraints: card("one_to_many")},
			{Name: "INSURES", Source: "Policy", Target: "Insured", Constraints: card("many_to_many")},
			{Name: "HAS_PREMIUM", Source: "Policy", Target: "Premium", Constraints: card("one_to_one")},
			{Name: "FILES_CLAIM", Source: "Insured", Target: "Claim",
				Properties: map[string]PropertyDef{"filing_date": date(false)}, Constraints: card("one_to_many")},
			{Name: "RELATED_TO", Source: "Claim", Target: "Coverage", Constraints: card("many_to_many")},
		},
	}
}

// NewDefault creates a registry populated with the default insurance schema.
func NewDefault(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Import(DefaultDocument())
	r.RecordVersion(InitialVersionDescription)
	return r
}
