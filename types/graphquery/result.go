package graphquery

import (
	"maps"
	"slices"
)

// PathResult records one final binding: the node bound to each alias and the
// projected properties of that binding.
type PathResult struct {
	Nodes      map[string]string `json:"nodes"`
	Properties map[string]any    `json:"properties"`
}

// Result is the outcome of executing a Spec. Properties holds the distinct projected
// values per "alias.property" key in discovery order.
type Result struct {
	Count      int                `json:"count"`
	Properties map[string][]any   `json:"properties"`
	Paths      []PathResult       `json:"paths,omitempty"`
	Procedural *ProceduralPayload `json:"procedural,omitempty"`
	StepCounts []int              `json:"step_counts,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{Properties: make(map[string][]any)}
}

// PropertyKeys returns the projected keys, sorted.
func (r *Result) PropertyKeys() []string {
	return slices.Sorted(maps.Keys(r.Properties))
}

// Values returns the distinct values projected under key.
func (r *Result) Values(key string) []any {
	return r.Properties[key]
}

// IsProcedural reports whether the result carries a procedural payload.
func (r *Result) IsProcedural() bool {
	return r != nil && r.Procedural != nil
}
