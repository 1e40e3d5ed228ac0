package graphquery

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Comparison operators understood by the executor.
const (
	OpEqual       = "="
	OpNotEqual    = "!="
	OpGreaterThan = ">"
	OpLessThan    = "<"
	OpContains    = "CONTAINS"
)

// FilterKind tags the Filter union.
type FilterKind string

const (
	// KindSimple is a single alias/property/operator/value condition.
	KindSimple FilterKind = "simple"
	// KindCompound groups conditions under AND or OR.
	KindCompound FilterKind = "compound"
)

// Logic combines the conditions of a compound filter.
type Logic string

const (
	// And passes when every condition matches.
	And Logic = "AND"
	// Or passes when any condition matches.
	Or Logic = "OR"
)

// Condition compares one property of a bound node against a literal.
type Condition struct {
	Alias    string `json:"alias"`
	Property string `json:"property"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Filter is either a simple condition or a compound AND/OR group.
type Filter struct {
	Kind       FilterKind
	Condition  Condition
	Logic      Logic
	Conditions []Condition
}

// Where builds a simple filter.
func Where(alias, property, operator string, value any) Filter {
	return Filter{
		Kind:      KindSimple,
		Condition: Condition{Alias: alias, Property: property, Operator: operator, Value: value},
	}
}

// AnyOf builds an OR compound filter.
func AnyOf(conditions ...Condition) Filter {
	return Filter{Kind: KindCompound, Logic: Or, Conditions: conditions}
}

// AllOf builds an AND compound filter.
func AllOf(conditions ...Condition) Filter {
	return Filter{Kind: KindCompound, Logic: And, Conditions: conditions}
}

// Aliases returns the distinct aliases the filter references.
func (f Filter) Aliases() []string {
	if f.Kind != KindCompound {
		return []string{f.Condition.Alias}
	}
	var out []string
	for _, c := range f.Conditions {
		if !slices.Contains(out, c.Alias) {
			out = append(out, c.Alias)
		}
	}
	return out
}

// References reports whether the filter touches alias.
func (f Filter) References(alias string) bool {
	return slices.Contains(f.Aliases(), alias)
}

type compoundJSON struct {
	Operator   Logic       `json:"operator"`
	Conditions []Condition `json:"conditions"`
}

// MarshalJSON writes a simple filter as its condition and a compound filter as
// {"operator": "AND"|"OR", "conditions": [...]}.
func (f Filter) MarshalJSON() ([]byte, error) {
	if f.Kind == KindCompound {
		return json.Marshal(compoundJSON{Operator: f.Logic, Conditions: f.Conditions})
	}
	return json.Marshal(f.Condition)
}

// UnmarshalJSON reads either filter form. An "operator" of AND or OR selects the
// compound form.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var probe struct {
		Operator string `json:"operator"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode filter: %w", err)
	}

	switch logic := Logic(strings.ToUpper(probe.Operator)); logic {
	case And, Or:
		var c compoundJSON
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("decode compound filter: %w", err)
		}
		*f = Filter{Kind: KindCompound, Logic: logic, Conditions: c.Conditions}
	default:
		var c Condition
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("decode filter condition: %w", err)
		}
		*f = Filter{Kind: KindSimple, Condition: c}
	}
	return nil
}
