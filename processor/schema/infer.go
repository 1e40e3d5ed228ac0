package schema

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	graphschema "github.com/c360/graphrag/schema"
)

const (
	maxSampleValues = 10
	enumMaxDistinct = 5
	enumMinCount    = 5
	requiredMinimum = 5 // required when seen more often than this
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
	regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`),
}

// InferType returns the schema type of one observed value. Integral floats, as
// decoded from JSON, are integers.
func InferType(v any) string {
	switch val := v.(type) {
	case nil:
		return graphschema.TypeNull
	case bool:
		return graphschema.TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return graphschema.TypeInteger
	case float32:
		return floatType(float64(val))
	case float64:
		return floatType(val)
	case map[string]any:
		return graphschema.TypeObject
	case []any, []string:
		return graphschema.TypeArray
	case string:
		for _, re := range datePatterns {
			if re.MatchString(val) {
				return graphschema.TypeDate
			}
		}
		return graphschema.TypeString
	default:
		return graphschema.TypeString
	}
}

func floatType(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return graphschema.TypeInteger
	}
	return graphschema.TypeNumber
}

// observation accumulates what was seen for one property.
type observation struct {
	count   int
	types   map[string]struct{}
	samples []string
	limit   int
}

func newObservation(limit int) *observation {
	return &observation{types: make(map[string]struct{}), limit: limit}
}

func (o *observation) observe(v any) {
	o.count++
	o.types[InferType(v)] = struct{}{}
	s := sampleString(v)
	if len(o.samples) < o.limit && !slices.Contains(o.samples, s) {
		o.samples = append(o.samples, s)
	}
}

func sampleString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// PropertyAnalysis is the inferred definition of a proposed property.
type PropertyAnalysis struct {
	Type         string   `json:"type"`
	Required     bool     `json:"required"`
	Enum         []string `json:"enum,omitempty"`
	SampleValues []string `json:"sample_values"`
	Frequency    int      `json:"frequency"`
}

// Definition converts the analysis into a schema property.
func (a PropertyAnalysis) Definition() graphschema.PropertyDef {
	return graphschema.PropertyDef{Type: a.Type, Required: a.Required, Enum: slices.Clone(a.Enum)}
}

// analyze resolves one type from the observed ones and applies the required and
// enum heuristics.
func analyze(name string, o *observation) PropertyAnalysis {
	a := PropertyAnalysis{
		Type:         resolveType(o.types),
		Required:     o.count > requiredMinimum,
		SampleValues: slices.Sorted(slices.Values(o.samples)),
		Frequency:    o.count,
	}

	lower := strings.ToLower(name)
	if strings.Contains(lower, "date") && a.Type == graphschema.TypeString {
		a.Type = graphschema.TypeDate
	}
	if strings.Contains(lower, "id") || strings.Contains(lower, "number") {
		a.Required = true
	}
	if len(o.samples) <= enumMaxDistinct && o.count >= enumMinCount {
		a.Enum = slices.Clone(a.SampleValues)
	}
	return a
}

// resolveType prefers string when mixed with anything, number over integer, and
// otherwise the first type in sorted order.
func resolveType(types map[string]struct{}) string {
	if len(types) == 0 {
		return graphschema.TypeString
	}
	sorted := make([]string, 0, len(types))
	for t := range types {
		sorted = append(sorted, t)
	}
	slices.Sort(sorted)

	switch {
	case len(sorted) == 1:
		return sorted[0]
	case slices.Contains(sorted, graphschema.TypeString):
		return graphschema.TypeString
	case slices.Contains(sorted, graphschema.TypeNumber) && slices.Contains(sorted, graphschema.TypeInteger):
		return graphschema.TypeNumber
	default:
		return sorted[0]
	}
}
