package intent

// Intent names recognized by the default classifier.
const (
	PolicyDetails      = "policy_details"
	CoverageInquiry    = "coverage_inquiry"
	ClaimStatus        = "claim_status"
	PremiumInformation = "premium_information"
	FilingClaim        = "filing_claim"
	DefinitionInquiry  = "definition_inquiry"

	// Unknown is returned when neither tier resolves an intent.
	Unknown = "unknown"
)

// Definition declares one intent: the regex patterns of the pattern tier and the
// example queries whose mean embedding is the intent centroid.
type Definition struct {
	Name     string   `json:"name" yaml:"name"`
	Patterns []string `json:"patterns" yaml:"patterns"`
	Examples []string `json:"examples" yaml:"examples"`
}

// DefaultIntents returns the insurance intents in registration order. Order breaks
// pattern-score ties.
func DefaultIntents() []Definition {
	return []Definition{
		{
			Name: PolicyDetails,
			Patterns: []string{
				`(?i)policy\s+details`,
				`(?i)information\s+about\s+(?:my|a|the)\s+policy`,
				`(?i)what\s+(?:is|are)\s+(?:in|on|the)\s+(?:my|the)\s+policy`,
				`(?i)tell\s+me\s+about\s+(?:my|a|the)\s+policy`,
			},
			Examples: []string{
				"What are the details of my policy?",
				"Can you tell me about policy P12345?",
				"I need information about my insurance policy",
				"Show me my policy details",
				"What does my policy say?",
			},
		},
		{
			Name: CoverageInquiry,
			Patterns: []string{
				`(?i)what\s+(?:is|does)\s+(?:my|the)\s+policy\s+cover`,
				`(?i)coverage\s+(?:details|information)`,
				`(?i)what\s+(?:are|is)\s+(?:my|the)\s+coverage`,
				`(?i)covered\s+under\s+(?:my|the)\s+policy`,
			},
			Examples: []string{
				"What does my policy cover?",
				"Am I covered for water damage?",
				"What is the coverage limit for my car insurance?",
				"Does my policy include liability coverage?",
				"What types of coverage do I have?",
			},
		},
		{
			Name: ClaimStatus,
			Patterns: []string{
				`(?i)status\s+of\s+(?:(?:my|the|a)\s+)?claim`,
				`(?i)claim\s+(?:status|update|progress)`,
				`(?i)what's\s+happening\s+with\s+(?:my|the)\s+claim`,
				`(?i)where\s+is\s+(?:my|the)\s+claim`,
			},
			Examples: []string{
				"What's the status of my claim?",
				"Has my claim been processed yet?",
				"I'd like an update on claim C67890",
				"Where is my claim in the process?",
				"Has a decision been made on my claim?",
			},
		},
		{
			Name: PremiumInformation,
			Patterns: []string{
				`(?i)(?:my|the)\s+premium`,
				`(?i)how\s+much\s+(?:is|does|do)\s+(?:my|the|I)\s+(?:premium|pay|cost)`,
				`(?i)payment\s+(?:amount|details|schedule)`,
				`(?i)when\s+(?:is|are)\s+(?:my|the)\s+payment`,
			},
			Examples: []string{
				"How much is my premium?",
				"When is my next premium payment due?",
				"Can you tell me about my payment schedule?",
				"What's the amount of my monthly premium?",
				"Has my premium changed recently?",
			},
		},
		{
			Name: FilingClaim,
			Patterns: []string{
				`(?i)(?:how|can|do)\s+(?:to|I|you)\s+file\s+a\s+claim`,
				`(?i)(?:submit|start|begin|initiate)\s+a\s+(?:new)?\s*claim`,
				`(?i)claim\s+(?:filing|submission)\s+process`,
				`(?i)report\s+(?:a|an|the)\s+(?:accident|incident|loss|damage)`,
			},
			Examples: []string{
				"How do I file a claim?",
				"I want to report an accident",
				"What's the process for submitting a claim?",
				"I need to start a new claim",
				"Steps to file an insurance claim",
			},
		},
		{
			Name: DefinitionInquiry,
			Patterns: []string{
				`(?i)what\s+(?:does|is|are)\s+(\w+)\s+mean`,
				`(?i)define\s+(\w+)`,
				`(?i)meaning\s+of\s+(\w+)`,
				`(?i)definition\s+of\s+(\w+)`,
			},
			Examples: []string{
				"What does deductible mean?",
				"Define coinsurance",
				"What is the meaning of liability?",
				"Give me the definition of an exclusion",
				"Explain what subrogation means",
			},
		},
	}
}
