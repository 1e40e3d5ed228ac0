// Package response turns query results into answers by selecting and filling
// templates.
package response

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360/graphrag/processor/query/builder"
	"github.com/c360/graphrag/processor/query/intent"
	"github.com/c360/graphrag/processor/query/params"
	gq "github.com/c360/graphrag/types/graphquery"
)

// MaxFollowUps caps the follow-up questions of one answer.
const MaxFollowUps = 3

// Answer is a synthesized response. Success is false for no-result answers.
type Answer struct {
	Text       string `json:"answer"`
	Success    bool   `json:"success"`
	TemplateID string `json:"template_id,omitempty"`
	Data       Data   `json:"template_data,omitempty"`
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithDefinitions sets the lookup used when a definition query returns no matching row.
func WithDefinitions(lookup DefinitionLookup) Option {
	return func(s *Synthesizer) {
		s.definitions = lookup
	}
}

// WithRegistry replaces the default templates.
func WithRegistry(r *Registry) Option {
	return func(s *Synthesizer) {
		if r != nil {
			s.templates = r
		}
	}
}

// Synthesizer builds answers from query results.
type Synthesizer struct {
	templates   *Registry
	definitions DefinitionLookup
	logger      *slog.Logger
}

// New creates a synthesizer with the default templates.
func New(logger *slog.Logger, opts ...Option) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synthesizer{logger: logger.With("component", "response")}
	for _, opt := range opts {
		opt(s)
	}
	if s.templates == nil {
		s.templates = NewRegistry()
		for _, t := range DefaultTemplates() {
			if err := s.templates.Register(t); err != nil {
				s.logger.Error("default template rejected", "template", t.ID, "error", err)
			}
		}
	}
	return s
}

// Templates returns the template registry.
func (s *Synthesizer) Templates() *Registry {
	return s.templates
}

// Synthesize answers from result. Procedural results and empty results have fixed
// answers; otherwise the first applicable template of the intent is filled. When
// none applies the default templates are filled with the intent as topic. Intents
// without templates select among the default templates directly.
func (s *Synthesizer) Synthesize(intentName string, result *gq.Result, p params.Params) Answer {
	if result.IsProcedural() {
		return proceduralAnswer(intentName, result.Procedural)
	}
	if result == nil || result.Count == 0 {
		return noResultsAnswer(intentName, p)
	}

	data := s.PrepareData(intentName, result, p)
	t, ok := s.templates.Select(intentName, data)
	if !ok {
		data = Data{"topic": topic(intentName)}
		t, ok = s.templates.Select(DefaultIntent, data)
		if !ok {
			return Answer{Text: fmt.Sprintf("I don't have enough information to answer your query about %s.", topic(intentName)), Success: true, Data: data}
		}
	}

	s.logger.Debug("template selected", "intent", intentName, "template", t.ID)
	return Answer{Text: t.Fill(data), Success: true, TemplateID: t.ID, Data: data}
}

func topic(intentName string) string {
	return strings.ReplaceAll(intentName, "_", " ")
}

func proceduralAnswer(intentName string, payload *gq.ProceduralPayload) Answer {
	if intentName != intent.FilingClaim {
		return Answer{Text: fmt.Sprintf("Here's the process for %s: [Procedural information]", topic(intentName)), Success: true}
	}
	required := payload.RequiredInfo
	if required == "" {
		required = builder.FilingRequiredInfo
	}
	contact := payload.ContactInfo
	if contact == "" {
		contact = builder.FilingContactInfo
	}
	return Answer{
		Text: fmt.Sprintf("To file a claim, you'll need to: 1) Report the incident immediately, 2) Gather all relevant "+
			"information including %s, 3) Contact our claims department at %s.", required, contact),
		Success: true,
		Data:    Data{"required_info": required, "contact_info": contact},
	}
}

func noResultsAnswer(intentName string, p params.Params) Answer {
	switch intentName {
	case intent.PolicyDetails:
		if v, ok := p[params.KeyPolicyNumber]; ok {
			return Answer{Text: fmt.Sprintf("I couldn't find any policy with the number %v. Please check if the policy number is correct.", v)}
		}
		return Answer{Text: "I need a policy number to provide policy details. Could you please provide your policy number?"}
	case intent.ClaimStatus:
		if v, ok := p[params.KeyClaimNumber]; ok {
			return Answer{Text: fmt.Sprintf("I couldn't find any claim with the number %v. Please check if the claim number is correct.", v)}
		}
		return Answer{Text: "I need a claim number to provide claim status. Could you please provide your claim number?"}
	}
	return Answer{Text: fmt.Sprintf("I couldn't find any information about your %s query. Could you provide more details?", topic(intentName))}
}

// FollowUps suggests at most MaxFollowUps questions for the intent.
func FollowUps(intentName string, p params.Params, result *gq.Result) []string {
	var out []string
	switch intentName {
	case intent.PolicyDetails:
		out = append(out, "What does this policy cover?", "How much is my premium?")
		if v, ok := p[params.KeyPolicyNumber]; ok {
			out = append(out, fmt.Sprintf("Have there been any claims on policy %v?", v))
		}
	case intent.CoverageInquiry:
		out = append(out, "What's my deductible for this coverage?", "How do I file a claim for this type of incident?")
		if result != nil {
			if types := result.Values("c.type"); len(types) > 0 {
				out = append(out, fmt.Sprintf("What's my coverage limit for %v?", types[0]))
			}
		}
	case intent.ClaimStatus:
		out = append(out, "When will this claim be processed?", "What documents do you need for this claim?")
		if v, ok := p[params.KeyClaimNumber]; ok {
			out = append(out, fmt.Sprintf("Who is the adjuster for claim %v?", v))
		}
	case intent.PremiumInformation:
		out = append(out, "Can I change my payment frequency?", "Are there any discounts available?",
			"What happens if I miss a payment?")
	case intent.FilingClaim:
		out = append(out, "How long does the claim process take?", "What documentation do I need for my claim?",
			"Will filing a claim affect my premium?")
	}
	if len(out) > MaxFollowUps {
		out = out[:MaxFollowUps]
	}
	return out
}
