// Package params extracts query parameters (policy and claim numbers, dates, amounts,
// coverage types and intent-specific flags) from query text.
package params

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/c360/graphrag/processor/query/intent"
)

// Parameter keys.
const (
	KeyPolicyNumber         = "policy_number"
	KeyClaimNumber          = "claim_number"
	KeyDateReference        = "date_reference"
	KeyAmountReference      = "amount_reference"
	KeyCoverageTypes        = "coverage_types"
	KeyPolicyType           = "policy_type"
	KeyStatusInquiry        = "status_inquiry"
	KeyPaymentInquiry       = "payment_inquiry"
	KeyDueDateInquiry       = "due_date_inquiry"
	KeyPremiumChangeInquiry = "premium_change_inquiry"
	KeyTerm                 = "term"
	KeyOriginalTerm         = "original_term"
	KeyUserID               = "user_id"
)

// Params maps parameter names to values. Context values are strings or whatever the
// caller supplied; coverage_types is a []string.
type Params map[string]any

// String returns the value of key when it is a string.
func (p Params) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// Strings returns the value of key when it is a string list.
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Clone returns a shallow copy with list values copied.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}

// CoverageTypes lists the recognized coverage names in the order they are reported.
var CoverageTypes = []string{
	"liability", "collision", "comprehensive", "uninsured motorist",
	"personal injury", "medical payments", "property damage",
	"flood", "fire", "theft", "water damage",
}

// PolicyTypes lists the recognized policy type keywords; the first match wins.
var PolicyTypes = []string{"auto", "home", "life", "health", "liability", "umbrella", "commercial"}

var (
	// Identifiers must contain a digit so that "my policy covers" does not yield a number.
	policyNumberRe  = regexp.MustCompile(`(?i)policy\s*(?:number|#)?\s*[:#]?\s*([A-Z0-9-]*[0-9][A-Z0-9-]*)`)
	claimNumberRe   = regexp.MustCompile(`(?i)claim\s*(?:number|#)?\s*[:#]?\s*([A-Z0-9-]*[0-9][A-Z0-9-]*)`)
	dateReferenceRe = regexp.MustCompile(`(?i)(?:on|for|from|since)\s+(\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4})`)
	amountRe        = regexp.MustCompile(`(?i)(?:amount|limit|deductible|premium)\s+(?:of\s+)?[$€£]?(\d+(?:,\d+)*(?:\.\d+)?)`)

	statusInquiryRe  = regexp.MustCompile(`(?i)\b(?:approved|denied|pending|review|progress|decision)\b`)
	paymentInquiryRe = regexp.MustCompile(`(?i)\b(?:payment|payout|reimbursement|check)\b`)
	dueDateRe        = regexp.MustCompile(`(?i)\b(?:due|next|payment date)\b`)
	premiumChangeRe  = regexp.MustCompile(`(?i)\b(?:increase|decrease|change|different)\b`)

	// Specific phrasings first so "what is the meaning of X" yields X.
	termPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)what\s+does\s+([\w\s-]+?)\s+mean(?:\?|$)`),
		regexp.MustCompile(`(?i)meaning\s+of\s+([\w\s-]+?)(?:\?|$)`),
		regexp.MustCompile(`(?i)definition\s+of\s+([\w\s-]+?)(?:\?|$)`),
		regexp.MustCompile(`(?i)define\s+([\w\s-]+?)(?:\?|$)`),
		regexp.MustCompile(`(?i)what\s+(?:is|are)\s+([\w\s-]+?)(?:\?|$)`),
	}
	termNoiseRe = regexp.MustCompile(`(?i)what\s+(?:is|are|does)|\bmeans?\b|\?|\bdefinition\b|\bof\b|\bthe\b`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// ExtractFunc adds parameters found in query to p.
type ExtractFunc func(query string, p Params)

// Extractor applies the generic extractors and then the extractors of the intent.
type Extractor struct {
	generic  []namedExtractor
	byIntent map[string][]namedExtractor
	logger   *slog.Logger
}

type namedExtractor struct {
	name string
	fn   ExtractFunc
}

// NewExtractor creates an extractor with the standard insurance extractors.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		byIntent: make(map[string][]namedExtractor),
		logger:   logger.With("component", "params"),
	}

	e.RegisterGeneric(KeyPolicyNumber, captureInto(policyNumberRe, KeyPolicyNumber))
	e.RegisterGeneric(KeyClaimNumber, captureInto(claimNumberRe, KeyClaimNumber))
	e.RegisterGeneric(KeyDateReference, captureInto(dateReferenceRe, KeyDateReference))
	e.RegisterGeneric(KeyAmountReference, extractAmount)
	e.RegisterGeneric(KeyCoverageTypes, extractCoverageTypes)

	e.Register(intent.PolicyDetails, KeyPolicyType, extractPolicyType)
	e.Register(intent.ClaimStatus, KeyStatusInquiry, flagOn(statusInquiryRe, KeyStatusInquiry))
	e.Register(intent.ClaimStatus, KeyPaymentInquiry, flagOn(paymentInquiryRe, KeyPaymentInquiry))
	e.Register(intent.PremiumInformation, KeyDueDateInquiry, flagOn(dueDateRe, KeyDueDateInquiry))
	e.Register(intent.PremiumInformation, KeyPremiumChangeInquiry, flagOn(premiumChangeRe, KeyPremiumChangeInquiry))
	e.Register(intent.DefinitionInquiry, KeyTerm, extractTerm)
	return e
}

// RegisterGeneric adds an extractor applied for every intent.
func (e *Extractor) RegisterGeneric(name string, fn ExtractFunc) {
	e.generic = append(e.generic, namedExtractor{name: name, fn: fn})
}

// Register adds an extractor applied only for the given intent.
func (e *Extractor) Register(intentName, name string, fn ExtractFunc) {
	e.byIntent[intentName] = append(e.byIntent[intentName], namedExtractor{name: name, fn: fn})
}

// Extract merges userContext and then applies every extractor. Extracted values
// override context values of the same key. A panicking extractor is logged and skipped.
func (e *Extractor) Extract(query, intentName string, userContext map[string]any) Params {
	p := make(Params, len(userContext))
	for k, v := range userContext {
		p[k] = v
	}

	for _, ex := range e.generic {
		e.apply(ex, query, p)
	}
	for _, ex := range e.byIntent[intentName] {
		e.apply(ex, query, p)
	}
	return p
}

func (e *Extractor) apply(ex namedExtractor, query string, p Params) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("parameter extractor failed", "extractor", ex.name, "panic", fmt.Sprint(r))
		}
	}()
	ex.fn(query, p)
}

func captureInto(re *regexp.Regexp, key string) ExtractFunc {
	return func(query string, p Params) {
		if m := re.FindStringSubmatch(query); m != nil {
			p[key] = m[1]
		}
	}
}

func flagOn(re *regexp.Regexp, key string) ExtractFunc {
	return func(query string, p Params) {
		if re.MatchString(query) {
			p[key] = true
		}
	}
}

func extractAmount(query string, p Params) {
	if m := amountRe.FindStringSubmatch(query); m != nil {
		p[KeyAmountReference] = strings.ReplaceAll(m[1], ",", "")
	}
}

func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
}

var (
	coverageTypeRes = compileWords(CoverageTypes)
	policyTypeRes   = compileWords(PolicyTypes)
)

func compileWords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = wordPattern(w)
	}
	return out
}

// extractCoverageTypes appends to any coverage_types already supplied by the context.
func extractCoverageTypes(query string, p Params) {
	found := slices.Clone(p.Strings(KeyCoverageTypes))
	matched := false
	for i, re := range coverageTypeRes {
		if re.MatchString(query) {
			found = append(found, CoverageTypes[i])
			matched = true
		}
	}
	if matched {
		p[KeyCoverageTypes] = found
	}
}

func extractPolicyType(query string, p Params) {
	for i, re := range policyTypeRes {
		if re.MatchString(query) {
			p[KeyPolicyType] = PolicyTypes[i]
			return
		}
	}
}

// extractTerm pulls the term a definition query asks about. When no pattern captures
// a term, the query stripped of question words is used.
func extractTerm(query string, p Params) {
	var term string
	for _, re := range termPatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			term = strings.ToLower(strings.TrimSpace(m[1]))
			break
		}
	}
	if term == "" {
		cleaned := termNoiseRe.ReplaceAllString(query, "")
		term = strings.ToLower(strings.TrimSpace(spaceRe.ReplaceAllString(cleaned, " ")))
	}
	p[KeyTerm] = term
	p[KeyOriginalTerm] = term
}
