// Package graphquery defines the declarative graph query built from an intent and
// evaluated by the executor, plus the result shape the executor produces.
package graphquery

import (
	"errors"
	"fmt"
	"slices"

	cerrors "github.com/c360/graphrag/errors"
)

// ErrForwardReference is reported by Validate for an alias used before it is introduced.
var ErrForwardReference = errors.New("alias referenced before it is introduced")

// Direction selects which edges a path step follows.
type Direction string

const (
	// Outgoing follows edges whose source is the bound node.
	Outgoing Direction = "outgoing"
	// Incoming follows edges whose target is the bound node.
	Incoming Direction = "incoming"
	// Both unions outgoing and incoming neighbors.
	Both Direction = "both"
)

// StartNode binds every node carrying Label to Alias.
type StartNode struct {
	Label string `json:"label"`
	Alias string `json:"alias"`
}

// NodeRef names one end of a path step.
type NodeRef struct {
	Alias string `json:"alias"`
	Label string `json:"label"`
}

// Relationship selects the edge type and direction of a path step.
type Relationship struct {
	Type      string    `json:"type"`
	Direction Direction `json:"direction"`
}

// PathStep extends bindings from an already bound alias to a new one.
type PathStep struct {
	From         NodeRef      `json:"from"`
	Relationship Relationship `json:"relationship"`
	To           NodeRef      `json:"to"`
}

// ReturnProperty projects one property of a bound alias.
type ReturnProperty struct {
	Alias    string `json:"alias"`
	Property string `json:"property"`
}

// Key is the result key, "alias.property".
func (r ReturnProperty) Key() string {
	return r.Alias + "." + r.Property
}

// ProceduralPayload is returned verbatim for intents answered without graph access.
type ProceduralPayload struct {
	RequiredInfo string `json:"required_info"`
	ContactInfo  string `json:"contact_info"`
}

// Spec is a declarative multi-hop graph query.
type Spec struct {
	StartNodes       []StartNode        `json:"start_nodes"`
	Paths            []PathStep         `json:"paths"`
	Filters          []Filter           `json:"filters"`
	ReturnProperties []ReturnProperty   `json:"return_properties"`
	Procedural       *ProceduralPayload `json:"procedural_data,omitempty"`
}

// IsProcedural reports whether the spec short-circuits graph access.
func (s *Spec) IsProcedural() bool {
	return s != nil && s.Procedural != nil
}

// Validate reports every alias used by a path, filter or projection before it is
// introduced by a start node or an earlier path step. The executor does not require
// a valid spec; it skips pieces it cannot resolve.
func (s *Spec) Validate() error {
	known := make(map[string]bool)
	for _, sn := range s.StartNodes {
		known[sn.Alias] = true
	}

	var problems []error
	for i, step := range s.Paths {
		if !known[step.From.Alias] {
			problems = append(problems, fmt.Errorf("%w: path %d from %q", ErrForwardReference, i, step.From.Alias))
		}
		known[step.To.Alias] = true
	}

	for i, f := range s.Filters {
		for _, alias := range f.Aliases() {
			if !known[alias] {
				problems = append(problems, fmt.Errorf("%w: filter %d alias %q", ErrForwardReference, i, alias))
			}
		}
	}

	for _, rp := range s.ReturnProperties {
		if !known[rp.Alias] {
			problems = append(problems, fmt.Errorf("%w: return property %q", ErrForwardReference, rp.Key()))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return cerrors.WrapInvalid(errors.Join(problems...), "graphquery", "Validate", "check aliases")
}

// Aliases returns the distinct aliases the spec introduces, in introduction order.
func (s *Spec) Aliases() []string {
	var out []string
	add := func(a string) {
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	for _, sn := range s.StartNodes {
		add(sn.Alias)
	}
	for _, step := range s.Paths {
		add(step.To.Alias)
	}
	return out
}
