package response

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	cerrors "github.com/c360/graphrag/errors"
)

// ErrTemplateExists indicates a template id is already registered.
var ErrTemplateExists = errors.New("template already registered")

// DefaultIntent holds the fallback templates used when an intent has none, or none
// of its templates apply.
const DefaultIntent = "default"

// Data holds the slot values a template is filled from.
type Data map[string]any

// Has reports whether slot is present.
func (d Data) Has(slot string) bool {
	_, ok := d[slot]
	return ok
}

// PredicateKind names a predicate node.
type PredicateKind string

// Predicate kinds.
const (
	KindAlways   PredicateKind = "always"
	KindHas      PredicateKind = "has"
	KindMissing  PredicateKind = "missing"
	KindNonEmpty PredicateKind = "non_empty"
	KindAll      PredicateKind = "all"
)

// Predicate decides whether a template applies to the prepared data. The zero value
// always holds.
type Predicate struct {
	Kind PredicateKind `json:"kind" yaml:"kind"`
	Slot string        `json:"slot,omitempty" yaml:"slot,omitempty"`
	All  []Predicate   `json:"all,omitempty" yaml:"all,omitempty"`
}

// Always holds for any data.
func Always() Predicate { return Predicate{Kind: KindAlways} }

// Has holds when slot is present.
func Has(slot string) Predicate { return Predicate{Kind: KindHas, Slot: slot} }

// Missing holds when slot is absent.
func Missing(slot string) Predicate { return Predicate{Kind: KindMissing, Slot: slot} }

// NonEmpty holds when slot is present and its text form is not empty.
func NonEmpty(slot string) Predicate { return Predicate{Kind: KindNonEmpty, Slot: slot} }

// All holds when every predicate holds.
func All(ps ...Predicate) Predicate { return Predicate{Kind: KindAll, All: ps} }

// Eval evaluates the predicate. Unknown kinds never hold.
func (p Predicate) Eval(d Data) bool {
	switch p.Kind {
	case "", KindAlways:
		return true
	case KindHas:
		return d.Has(p.Slot)
	case KindMissing:
		return !d.Has(p.Slot)
	case KindNonEmpty:
		v, ok := d[p.Slot]
		return ok && fmt.Sprint(v) != ""
	case KindAll:
		for _, sub := range p.All {
			if !sub.Eval(d) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Template is one answer form for an intent.
type Template struct {
	ID            string    `json:"id" yaml:"id"`
	Intent        string    `json:"intent" yaml:"intent"`
	Text          string    `json:"text" yaml:"text"`
	RequiredSlots []string  `json:"required_slots" yaml:"required_slots"`
	OptionalSlots []string  `json:"optional_slots,omitempty" yaml:"optional_slots,omitempty"`
	When          Predicate `json:"when" yaml:"when"`
}

// Applies reports whether every required slot is present and the predicate holds.
func (t Template) Applies(d Data) bool {
	for _, slot := range t.RequiredSlots {
		if !d.Has(slot) {
			return false
		}
	}
	return t.When.Eval(d)
}

// Fill substitutes {slot} placeholders with slot values. Placeholders without a
// value stay as written, optional ones included.
func (t Template) Fill(d Data) string {
	text := t.Text
	for slot, v := range d {
		text = strings.ReplaceAll(text, "{"+slot+"}", fmt.Sprint(v))
	}
	return strings.TrimSpace(text)
}

// Registry keeps templates by id and by intent in registration order.
type Registry struct {
	byID     map[string]Template
	byIntent map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]Template),
		byIntent: make(map[string][]string),
	}
}

// Register adds t. Ids are unique.
func (r *Registry) Register(t Template) error {
	if t.ID == "" || t.Intent == "" {
		return cerrors.WrapInvalid(fmt.Errorf("template needs id and intent"), "response", "Register", "validate template")
	}
	if _, ok := r.byID[t.ID]; ok {
		return cerrors.WrapInvalid(fmt.Errorf("%w: %s", ErrTemplateExists, t.ID), "response", "Register", "add template")
	}
	t.RequiredSlots = slices.Clone(t.RequiredSlots)
	t.OptionalSlots = slices.Clone(t.OptionalSlots)
	r.byID[t.ID] = t
	r.byIntent[t.Intent] = append(r.byIntent[t.Intent], t.ID)
	return nil
}

// Template returns the template with id.
func (r *Registry) Template(id string) (Template, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// ForIntent returns the templates of an intent in registration order.
func (r *Registry) ForIntent(intentName string) []Template {
	ids := r.byIntent[intentName]
	out := make([]Template, len(ids))
	for i, id := range ids {
		out[i] = r.byID[id]
	}
	return out
}

// Select returns the first applicable template of intentName. Intents without
// templates use the default templates.
func (r *Registry) Select(intentName string, d Data) (Template, bool) {
	candidates := r.ForIntent(intentName)
	if len(candidates) == 0 {
		candidates = r.ForIntent(DefaultIntent)
	}
	for _, t := range candidates {
		if t.Applies(d) {
			return t, true
		}
	}
	return Template{}, false
}
