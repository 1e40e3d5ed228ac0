package response

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/c360/graphrag/graph"
	"github.com/c360/graphrag/processor/query/builder"
	"github.com/c360/graphrag/processor/query/intent"
	"github.com/c360/graphrag/processor/query/params"
	gq "github.com/c360/graphrag/types/graphquery"
)

// DefinitionLookup finds a stored definition close to term.
type DefinitionLookup interface {
	LookupDefinition(term string) (found, meaning string, ok bool)
}

// NodeSource yields the nodes carrying a label.
type NodeSource interface {
	NodesByLabel(label string) iter.Seq[*graph.Node]
}

// GraphDefinitions looks definitions up among graph nodes by term similarity.
type GraphDefinitions struct {
	nodes     NodeSource
	labels    []string
	threshold float64
}

// NewGraphDefinitions searches nodes with the given labels, "Definition" when none
// are given.
func NewGraphDefinitions(nodes NodeSource, labels ...string) *GraphDefinitions {
	if len(labels) == 0 {
		labels = []string{"Definition"}
	}
	return &GraphDefinitions{nodes: nodes, labels: labels, threshold: 0.5}
}

// LookupDefinition returns the best match scoring above 0.5. A node's term is its
// "term" property, or "name" when it has none; its meaning is "meaning", or
// "description".
func (g *GraphDefinitions) LookupDefinition(term string) (string, string, bool) {
	term = strings.ToLower(strings.TrimSpace(term))
	var (
		best      *graph.Node
		bestScore float64
	)
	for _, label := range g.labels {
		for n := range g.nodes.NodesByLabel(label) {
			score := TermSimilarity(term, strings.ToLower(firstString(n.Properties, "term", "name")))
			if score > g.threshold && score > bestScore {
				best, bestScore = n, score
			}
		}
	}
	if best == nil {
		return "", "", false
	}
	return firstString(best.Properties, "term", "name"), firstString(best.Properties, "meaning", "description"), true
}

// TermSimilarity scores two lowercase terms: 0.8 when one contains the other,
// otherwise the Jaccard overlap of their words.
func TermSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}
	wa, wb := wordSet(a), wordSet(b)
	union := len(wa)
	overlap := 0
	for w := range wb {
		if _, ok := wa[w]; ok {
			overlap++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		out[w] = struct{}{}
	}
	return out
}

func firstString(props map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := props[k].(string); ok {
			return s
		}
	}
	return ""
}

// PrepareData maps query results onto template slots.
func (s *Synthesizer) PrepareData(intentName string, result *gq.Result, p params.Params) Data {
	if intentName == intent.DefinitionInquiry {
		return s.prepareDefinition(result, p)
	}

	d := make(Data)
	if result != nil {
		for _, key := range result.PropertyKeys() {
			alias, prop := splitKey(key)
			mapSlot(d, alias, prop, joinValues(result.Values(key)))
		}
	}

	switch intentName {
	case intent.CoverageInquiry:
		prepareCoverage(d, result, p)
	case intent.FilingClaim:
		setDefault(d, "required_info", builder.FilingRequiredInfo)
		setDefault(d, "contact_info", builder.FilingContactInfo)
	}
	return d
}

func splitKey(key string) (alias, prop string) {
	if a, p, ok := strings.Cut(key, "."); ok {
		return a, p
	}
	return "", key
}

// joinValues returns the single value, or all values joined with ", ".
func joinValues(vals []any) any {
	if len(vals) == 1 {
		return vals[0]
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

func mapSlot(d Data, alias, prop string, v any) {
	switch {
	case prop == "type" && alias == "p":
		d["policy_type"] = v
	case prop == "type" && alias == "c":
		d["coverage_type"] = v
	case prop == "date_of_loss":
		d["date_filed"] = v
	case prop == "amount" && alias == "pr":
		d["amount"] = "$" + fmt.Sprint(v)
	case prop == "amount" && alias == "c":
		d["claim_amount"] = "$" + fmt.Sprint(v)
	case prop == "payment_frequency":
		d["frequency"] = v
	case prop == "limit", prop == "deductible":
		d[prop] = "$" + fmt.Sprint(v)
	default:
		d[prop] = v
	}
}

func setDefault(d Data, slot string, v any) {
	if !d.Has(slot) {
		d[slot] = v
	}
}

// prepareCoverage aggregates coverage types and limits across paths, and picks the
// limit and deductible of the first requested coverage type.
func prepareCoverage(d Data, result *gq.Result, p params.Params) {
	if result == nil {
		return
	}

	var (
		types []string
		total float64
	)
	seen := make(map[string]struct{})
	for _, path := range result.Paths {
		for key, v := range path.Properties {
			_, prop := splitKey(key)
			switch prop {
			case "type":
				t := fmt.Sprint(v)
				if _, dup := seen[t]; !dup {
					seen[t] = struct{}{}
					types = append(types, t)
				}
			case "limit":
				if f, ok := number(v); ok {
					total += f
				}
			}
		}
	}
	if len(types) > 0 {
		d["coverage_list"] = strings.Join(types, ", ")
	}
	if total != 0 {
		d["total_limit"] = "$" + formatThousands(total)
	}

	requested := p.Strings(params.KeyCoverageTypes)
	if len(requested) == 0 {
		return
	}
	wanted := strings.ToLower(requested[0])
	d["peril_type"] = wanted
	for _, path := range result.Paths {
		if !pathHasType(path, wanted) {
			continue
		}
		for key, v := range path.Properties {
			_, prop := splitKey(key)
			if prop != "limit" && prop != "deductible" {
				continue
			}
			if f, ok := number(v); ok {
				d[prop] = "$" + formatThousands(f)
			}
		}
		return
	}
}

func pathHasType(path gq.PathResult, wanted string) bool {
	for key, v := range path.Properties {
		if _, prop := splitKey(key); prop == "type" {
			if s, ok := v.(string); ok && strings.ToLower(s) == wanted {
				return true
			}
		}
	}
	return false
}

// prepareDefinition pairs the requested term with a matching result row, then falls
// back to the definition lookup. Without a match the meaning slot stays empty.
func (s *Synthesizer) prepareDefinition(result *gq.Result, p params.Params) Data {
	d := make(Data)
	requested, _ := p.String(params.KeyTerm)
	if requested != "" {
		d["term"] = requested
	}
	requested = strings.ToLower(requested)

	if result != nil {
		for _, path := range result.Paths {
			found, _ := path.Properties["d.term"].(string)
			if found == "" {
				continue
			}
			lower := strings.ToLower(found)
			if lower == requested || strings.Contains(lower, requested) || strings.Contains(requested, lower) ||
				hasAlias(path.Properties["d.aliases"], requested) {
				d["term"] = found
				if meaning, ok := path.Properties["d.meaning"]; ok {
					d["meaning"] = meaning
				}
				return d
			}
		}
	}

	if s.definitions != nil && requested != "" {
		if found, meaning, ok := s.definitions.LookupDefinition(requested); ok {
			d["term"] = found
			d["meaning"] = meaning
		}
	}
	return d
}

func hasAlias(aliases any, term string) bool {
	switch list := aliases.(type) {
	case []string:
		for _, a := range list {
			if strings.EqualFold(a, term) {
				return true
			}
		}
	case []any:
		for _, a := range list {
			if s, ok := a.(string); ok && strings.EqualFold(s, term) {
				return true
			}
		}
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// formatThousands renders f with comma thousands separators and two decimals when
// f is not integral.
func formatThousands(f float64) string {
	neg := f < 0
	f = math.Abs(f)

	prec := 2
	if f == math.Trunc(f) {
		prec = 0
	}
	digits, frac, hasFrac := strings.Cut(strconv.FormatFloat(f, 'f', prec, 64), ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
