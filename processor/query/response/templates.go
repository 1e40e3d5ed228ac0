package response

import "github.com/c360/graphrag/processor/query/intent"

// DefaultTemplates returns the insurance answer templates. Within an intent the
// first applicable template wins.
func DefaultTemplates() []Template {
	return []Template{
		{
			ID:     "policy_details.summary",
			Intent: intent.PolicyDetails,
			Text: "Your policy {policy_number} is a {policy_type} insurance policy with an effective date of " +
				"{effective_date} and expiration date of {expiration_date}. {additional_info}",
			RequiredSlots: []string{"policy_number", "policy_type", "effective_date", "expiration_date"},
			OptionalSlots: []string{"additional_info"},
			When:          Has("policy_number"),
		},
		{
			ID:            "policy_details.status",
			Intent:        intent.PolicyDetails,
			Text:          "I found your {policy_type} policy. It's currently {status} and covers you from {effective_date} to {expiration_date}.",
			RequiredSlots: []string{"policy_type", "status", "effective_date", "expiration_date"},
			When:          All(Has("policy_type"), Has("status")),
		},
		{
			ID:            "coverage_inquiry.list",
			Intent:        intent.CoverageInquiry,
			Text:          "Your policy includes the following coverages: {coverage_list}. The total coverage limit is {total_limit}.",
			RequiredSlots: []string{"coverage_list"},
			OptionalSlots: []string{"total_limit"},
			When:          NonEmpty("coverage_list"),
		},
		{
			ID:            "coverage_inquiry.peril",
			Intent:        intent.CoverageInquiry,
			Text:          "For {peril_type}, your policy provides coverage up to {limit} with a deductible of {deductible}.",
			RequiredSlots: []string{"peril_type", "limit", "deductible"},
			When:          All(Has("peril_type"), Has("limit")),
		},
		{
			ID:            "claim_status.summary",
			Intent:        intent.ClaimStatus,
			Text:          "Your claim {claim_number} is currently {status}. {additional_info}",
			RequiredSlots: []string{"claim_number", "status"},
			OptionalSlots: []string{"additional_info"},
			When:          All(Has("claim_number"), Has("status")),
		},
		{
			ID:            "claim_status.filed",
			Intent:        intent.ClaimStatus,
			Text:          "The claim you filed on {date_filed} for {claim_type} is {status}. The assigned adjuster is {adjuster}.",
			RequiredSlots: []string{"date_filed", "claim_type", "status"},
			OptionalSlots: []string{"adjuster"},
			When:          All(Has("date_filed"), Has("status")),
		},
		{
			ID:            "premium_information.schedule",
			Intent:        intent.PremiumInformation,
			Text:          "Your premium is {amount} paid {frequency}. Your next payment is due on {due_date}.",
			RequiredSlots: []string{"amount", "frequency", "due_date"},
			When:          All(Has("amount"), Has("due_date")),
		},
		{
			ID:            "premium_information.amount",
			Intent:        intent.PremiumInformation,
			Text:          "You're currently paying {amount} {frequency} for your insurance. Your payment history shows {payment_status}.",
			RequiredSlots: []string{"amount", "frequency"},
			OptionalSlots: []string{"payment_status"},
			When:          All(Has("amount"), Has("frequency")),
		},
		{
			ID:     "filing_claim.steps",
			Intent: intent.FilingClaim,
			Text: "To file a claim, you'll need to: 1) Report the incident immediately, 2) Gather all relevant " +
				"information including {required_info}, 3) Contact our claims department at {contact_info}.",
			RequiredSlots: []string{"required_info", "contact_info"},
			When:          Always(),
		},
		{
			ID:            "definition_inquiry.found",
			Intent:        intent.DefinitionInquiry,
			Text:          "According to the insurance documentation, {term} means: {meaning}",
			RequiredSlots: []string{"term", "meaning"},
			When:          All(Has("term"), Has("meaning")),
		},
		{
			ID:            "definition_inquiry.missing",
			Intent:        intent.DefinitionInquiry,
			Text:          "I don't have a definition for {term} in my knowledge base.",
			RequiredSlots: []string{"term"},
			When:          All(Has("term"), Missing("meaning")),
		},
		{
			ID:            "default.topic",
			Intent:        DefaultIntent,
			Text:          "I don't have enough information to answer your query about {topic}. Could you provide more details?",
			RequiredSlots: []string{"topic"},
			When:          Has("topic"),
		},
		{
			ID:     "default.rephrase",
			Intent: DefaultIntent,
			Text:   "I'm not sure I understand your question. Can you rephrase it or provide more specific details about what you're looking for?",
			When:   Always(),
		},
	}
}
