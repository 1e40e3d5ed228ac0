// Package builder maps an intent and its extracted parameters to a graph query.
package builder

import (
	"github.com/c360/graphrag/processor/query/intent"
	"github.com/c360/graphrag/processor/query/params"
	gq "github.com/c360/graphrag/types/graphquery"
)

// Procedural claim-filing information returned without graph access.
const (
	FilingRequiredInfo = "policy information, date and details of incident, photos if applicable"
	FilingContactInfo  = "1-800-555-CLAIM or claims@example-insurance.com"
)

// BranchFunc builds the query for one intent.
type BranchFunc func(p params.Params) *gq.Spec

// Builder dispatches to one branch per intent. Intents without a branch use the
// fallback branch.
type Builder struct {
	branches map[string]BranchFunc
	fallback BranchFunc
}

// New creates a builder with the insurance branches registered.
func New() *Builder {
	b := &Builder{
		branches: make(map[string]BranchFunc),
		fallback: buildDefault,
	}
	b.Register(intent.PolicyDetails, buildPolicyDetails)
	b.Register(intent.CoverageInquiry, buildCoverageInquiry)
	b.Register(intent.ClaimStatus, buildClaimStatus)
	b.Register(intent.PremiumInformation, buildPremiumInformation)
	b.Register(intent.FilingClaim, buildFilingClaim)
	b.Register(intent.DefinitionInquiry, buildDefinitionInquiry)
	return b
}

// Register adds or replaces the branch of an intent.
func (b *Builder) Register(intentName string, fn BranchFunc) {
	b.branches[intentName] = fn
}

// Has reports whether an intent has its own branch.
func (b *Builder) Has(intentName string) bool {
	_, ok := b.branches[intentName]
	return ok
}

// Build returns the query for intentName. The result is never nil.
func (b *Builder) Build(intentName string, p params.Params) *gq.Spec {
	if p == nil {
		p = params.Params{}
	}
	fn, ok := b.branches[intentName]
	if !ok {
		fn = b.fallback
	}
	return fn(p)
}

func outgoing(fromAlias, fromLabel, relType, toAlias, toLabel string) gq.PathStep {
	return gq.PathStep{
		From:         gq.NodeRef{Alias: fromAlias, Label: fromLabel},
		Relationship: gq.Relationship{Type: relType, Direction: gq.Outgoing},
		To:           gq.NodeRef{Alias: toAlias, Label: toLabel},
	}
}

func returns(alias string, props ...string) []gq.ReturnProperty {
	out := make([]gq.ReturnProperty, len(props))
	for i, p := range props {
		out[i] = gq.ReturnProperty{Alias: alias, Property: p}
	}
	return out
}

// whereParam appends an equality filter on alias.property when key is present.
func whereParam(spec *gq.Spec, p params.Params, key, alias, property string) {
	if v, ok := p[key]; ok {
		spec.Filters = append(spec.Filters, gq.Where(alias, property, gq.OpEqual, v))
	}
}

func buildPolicyDetails(p params.Params) *gq.Spec {
	spec := &gq.Spec{
		StartNodes:       []gq.StartNode{{Label: "Policy", Alias: "p"}},
		ReturnProperties: returns("p", "policy_number", "effective_date", "expiration_date", "status", "type"),
	}
	whereParam(spec, p, params.KeyPolicyNumber, "p", "policy_number")
	whereParam(spec, p, params.KeyPolicyType, "p", "type")

	if p.Has(params.KeyUserID) {
		spec.Paths = append(spec.Paths, outgoing("p", "Policy", "INSURES", "i", "Insured"))
		whereParam(spec, p, params.KeyUserID, "i", "id_number")
		spec.ReturnProperties = append(spec.ReturnProperties, returns("i", "name")...)
	}
	return spec
}

func buildCoverageInquiry(p params.Params) *gq.Spec {
	spec := &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Paths:      []gq.PathStep{outgoing("p", "Policy", "HAS_COVERAGE", "c", "Coverage")},
		ReturnProperties: append(returns("p", "policy_number"),
			returns("c", "type", "limit", "deductible")...),
	}
	whereParam(spec, p, params.KeyPolicyNumber, "p", "policy_number")

	if types := p.Strings(params.KeyCoverageTypes); len(types) > 0 {
		conds := make([]gq.Condition, len(types))
		for i, t := range types {
			conds[i] = gq.Condition{Alias: "c", Property: "type", Operator: gq.OpEqual, Value: t}
		}
		spec.Filters = append(spec.Filters, gq.AnyOf(conds...))
	}
	return spec
}

// buildClaimStatus starts from the insured when the user is known so that only
// their claims are reachable.
func buildClaimStatus(p params.Params) *gq.Spec {
	spec := &gq.Spec{
		StartNodes:       []gq.StartNode{{Label: "Claim", Alias: "c"}},
		ReturnProperties: returns("c", "claim_number", "date_of_loss", "status", "amount"),
	}
	whereParam(spec, p, params.KeyClaimNumber, "c", "claim_number")

	if p.Has(params.KeyUserID) {
		spec.StartNodes = []gq.StartNode{{Label: "Insured", Alias: "i"}}
		spec.Paths = append(spec.Paths, outgoing("i", "Insured", "FILES_CLAIM", "c", "Claim"))
		whereParam(spec, p, params.KeyUserID, "i", "id_number")
	}
	return spec
}

func buildPremiumInformation(p params.Params) *gq.Spec {
	spec := &gq.Spec{
		StartNodes: []gq.StartNode{{Label: "Policy", Alias: "p"}},
		Paths:      []gq.PathStep{outgoing("p", "Policy", "HAS_PREMIUM", "pr", "Premium")},
		ReturnProperties: append(returns("p", "policy_number"),
			returns("pr", "amount", "payment_frequency", "due_date")...),
	}
	whereParam(spec, p, params.KeyPolicyNumber, "p", "policy_number")

	if p.Has(params.KeyUserID) {
		spec.Paths = append(spec.Paths, outgoing("p", "Policy", "INSURES", "i", "Insured"))
		whereParam(spec, p, params.KeyUserID, "i", "id_number")
	}
	return spec
}

func buildFilingClaim(params.Params) *gq.Spec {
	return &gq.Spec{
		Procedural: &gq.ProceduralPayload{
			RequiredInfo: FilingRequiredInfo,
			ContactInfo:  FilingContactInfo,
		},
	}
}

// buildDefinitionInquiry matches the term exactly, as a substring of the stored term,
// or as one of the stored aliases.
func buildDefinitionInquiry(p params.Params) *gq.Spec {
	spec := &gq.Spec{
		StartNodes:       []gq.StartNode{{Label: "Definition", Alias: "d"}},
		ReturnProperties: returns("d", "term", "meaning", "aliases"),
	}

	term, _ := p.String(params.KeyTerm)
	if term == "" {
		return spec
	}
	spec.Filters = append(spec.Filters, gq.AnyOf(
		gq.Condition{Alias: "d", Property: "term", Operator: gq.OpEqual, Value: term},
		gq.Condition{Alias: "d", Property: "term", Operator: gq.OpContains, Value: term},
		gq.Condition{Alias: "d", Property: "aliases", Operator: gq.OpContains, Value: term},
	))
	return spec
}

func buildDefault(params.Params) *gq.Spec {
	return &gq.Spec{
		StartNodes:       []gq.StartNode{{Label: "Policy", Alias: "p"}},
		ReturnProperties: returns("p", "policy_number"),
	}
}
