package usecase

import (
	"math"
	"strings"

	"github.com/akosterin/docqa/internal/core/domain"
)

// Type triggers are tested in this fixed order; the first matching set wins.
// The order is a deliberate tie-break policy.
var queryTypeTriggers = []struct {
	queryType domain.QueryType
	phrases   []string
}{
	{domain.QueryFactual, []string{"what is", "define", "definition", "meaning of"}},
	{domain.QueryComparative, []string{"compare", "difference", "versus", "vs", "contrast"}},
	{domain.QueryProcedural, []string{"how to", "steps", "process", "procedure", "protocol"}},
	{domain.QueryAnalytical, []string{"analyze", "analysis", "evaluate", "assess", "examine"}},
	{domain.QueryExploratory, []string{"overview", "tell me about", "explain", "describe", "about"}},
}

var complexityPhrases = []string{"comprehensive", "detailed", "thorough", "in-depth"}

var narrowScopePhrases = []string{"specific", "particular", "exact", "precise"}

var broadScopePhrases = []string{"all", "every", "comprehensive", "complete", "entire", "global"}

// knownOrganizations maps query phrasings to canonical organization names
// used as metadata filter values. Longer phrasings are listed with their
// abbreviations; first hit wins.
var knownOrganizations = []struct {
	phrase string
	name   string
}{
	{"financial action task force", "FATF"},
	{"fatf", "FATF"},
	{"financial intelligence unit", "FIU"},
	{"fiu", "FIU"},
	{"united nations", "UN"},
	{"international monetary fund", "IMF"},
	{"imf", "IMF"},
	{"world bank", "World Bank"},
	{"egmont", "Egmont Group"},
	{"wolfsberg", "Wolfsberg Group"},
	{"basel", "Basel Committee"},
	{"oecd", "OECD"},
}

// topicGroups map many phrasings to one canonical tag. The tags mirror those
// emitted by the indexing side, so they can be used as filter values.
var topicGroups = []struct {
	phrases []string
	tag     string
}{
	{[]string{"crypto", "virtual asset", "vasp", "cryptocurrency", "bitcoin", "digital currency"}, "virtual_assets"},
	{[]string{"sanction", "sanctions", "embargo"}, "sanctions"},
	{[]string{"beneficial ownership", "beneficial owner", "ubo", "ultimate beneficial"}, "beneficial_ownership"},
	{[]string{"cdd", "customer due diligence", "kyc", "know your customer"}, "customer_due_diligence"},
	{[]string{"edd", "enhanced due diligence"}, "enhanced_due_diligence"},
	{[]string{"pep", "peps", "politically exposed"}, "peps"},
	{[]string{"risk assessment", "risk based approach", "risk management"}, "risk_assessment"},
	{[]string{"transaction monitoring", "suspicious transaction", "unusual transaction"}, "transaction_monitoring"},
	{[]string{"suspicious activity report", "suspicious transaction report", "sar", "str"}, "suspicious_activity_reporting"},
	{[]string{"wire transfer", "funds transfer", "remittance"}, "wire_transfers"},
	{[]string{"tbml", "trade based", "trade finance"}, "trade_based_money_laundering"},
	{[]string{"correspondent bank", "nostro", "vostro"}, "correspondent_banking"},
	{[]string{"dnfbp", "designated non-financial", "casino", "real estate"}, "dnfbps"},
	{[]string{"npo", "non-profit", "nonprofit", "charity", "charitable"}, "non_profit_organizations"},
	{[]string{"terrorism financing", "terrorist financing", "ctf", "cft", "counter terrorism"}, "terrorism_financing"},
	{[]string{"money laundering", "aml", "anti money laundering", "laundering"}, "money_laundering"},
	{[]string{"proliferation financing", "wmd", "weapons of mass destruction"}, "proliferation_financing"},
}

func defaultResultLimits() map[domain.QueryType]domain.ResultLimits {
	return map[domain.QueryType]domain.ResultLimits{
		domain.QueryFactual:     {Chunks: 5, Summaries: 2},
		domain.QueryProcedural:  {Chunks: 12, Summaries: 3},
		domain.QueryComparative: {Chunks: 8, Summaries: 6},
		domain.QueryAnalytical:  {Chunks: 15, Summaries: 7},
		domain.QueryExploratory: {Chunks: 10, Summaries: 5},
	}
}

// QueryAnalyzer derives retrieval characteristics from raw query text.
// Pure text inspection: no provider calls, no randomness.
type QueryAnalyzer struct {
	baseLimits map[domain.QueryType]domain.ResultLimits
}

func NewQueryAnalyzer(baseLimits map[domain.QueryType]domain.ResultLimits) *QueryAnalyzer {
	if len(baseLimits) == 0 {
		baseLimits = defaultResultLimits()
	}
	return &QueryAnalyzer{baseLimits: baseLimits}
}

func (a *QueryAnalyzer) Analyze(query string) domain.QueryCharacteristics {
	lower := strings.ToLower(query)
	wordCount := len(strings.Fields(query))

	characteristics := domain.QueryCharacteristics{
		Type:       classifyQueryType(lower),
		Complexity: classifyComplexity(lower, wordCount),
		Scope:      classifyScope(lower),
	}

	switch characteristics.Type {
	case domain.QueryFactual, domain.QueryProcedural:
		characteristics.NeedsChunks = true
		characteristics.NeedsSummaries = false
	default:
		characteristics.NeedsChunks = true
		characteristics.NeedsSummaries = true
	}

	characteristics.FilterHints = extractFilterHints(lower)
	return characteristics
}

// ResultLimits sizes the per-tier search. Complexity scaling applies before
// scope scaling; final counts are integers >= 1.
func (a *QueryAnalyzer) ResultLimits(c domain.QueryCharacteristics) domain.ResultLimits {
	base, ok := a.baseLimits[c.Type]
	if !ok {
		base = defaultResultLimits()[domain.QueryExploratory]
	}

	chunks := float64(base.Chunks)
	summaries := float64(base.Summaries)

	switch c.Complexity {
	case domain.ComplexitySimple:
		chunks = math.Floor(chunks * 0.6)
		summaries = math.Floor(summaries * 0.6)
	case domain.ComplexityComplex:
		chunks = math.Ceil(chunks * 1.5)
		summaries = math.Ceil(summaries * 1.5)
	}

	switch c.Scope {
	case domain.ScopeNarrow:
		chunks = math.Floor(chunks * 0.7)
		summaries = math.Floor(summaries * 0.7)
	case domain.ScopeBroad:
		chunks = math.Floor(chunks * 1.3)
		summaries = math.Floor(summaries * 1.3)
	}

	return domain.ResultLimits{
		Chunks:    atLeastOne(int(chunks)),
		Summaries: atLeastOne(int(summaries)),
	}
}

func classifyQueryType(lower string) domain.QueryType {
	for _, entry := range queryTypeTriggers {
		for _, phrase := range entry.phrases {
			if containsPhrase(lower, phrase) {
				return entry.queryType
			}
		}
	}
	return domain.QueryExploratory
}

func classifyComplexity(lower string, wordCount int) domain.Complexity {
	if wordCount < 5 {
		return domain.ComplexitySimple
	}
	if wordCount > 15 {
		return domain.ComplexityComplex
	}
	for _, phrase := range complexityPhrases {
		if containsPhrase(lower, phrase) {
			return domain.ComplexityComplex
		}
	}
	return domain.ComplexityModerate
}

func classifyScope(lower string) domain.Scope {
	for _, phrase := range narrowScopePhrases {
		if containsPhrase(lower, phrase) {
			return domain.ScopeNarrow
		}
	}
	for _, phrase := range broadScopePhrases {
		if containsPhrase(lower, phrase) {
			return domain.ScopeBroad
		}
	}
	return domain.ScopeMedium
}

func extractFilterHints(lower string) []domain.FilterHint {
	hints := make([]domain.FilterHint, 0, 2)

	for _, org := range knownOrganizations {
		if containsPhrase(lower, org.phrase) {
			hints = append(hints, domain.FilterHint{Field: domain.FilterOrganization, Value: org.name})
			break
		}
	}

	for _, group := range topicGroups {
		matched := false
		for _, phrase := range group.phrases {
			if containsPhrase(lower, phrase) {
				matched = true
				break
			}
		}
		if matched {
			hints = append(hints, domain.FilterHint{Field: domain.FilterTopic, Value: group.tag})
			break
		}
	}

	if len(hints) == 0 {
		return nil
	}
	return hints
}

// containsPhrase matches a phrase on word boundaries so short triggers like
// "vs" or "sar" do not fire inside unrelated words.
func containsPhrase(lower, phrase string) bool {
	idx := 0
	for {
		pos := strings.Index(lower[idx:], phrase)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(phrase)
		if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
			return true
		}
		idx = start + 1
		if idx >= len(lower) {
			return false
		}
	}
}

func boundaryBefore(s string, start int) bool {
	if start == 0 {
		return true
	}
	return !isWordChar(s[start-1])
}

func boundaryAfter(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	return !isWordChar(s[end])
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
