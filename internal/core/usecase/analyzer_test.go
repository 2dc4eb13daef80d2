package usecase

import (
	"testing"

	"github.com/akosterin/docqa/internal/core/domain"
)

func TestAnalyzeClassifiesQueryTypes(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	cases := []struct {
		query string
		want  domain.QueryType
	}{
		{"what is trade-based money laundering", domain.QueryFactual},
		{"compare FATF and Egmont guidance on virtual assets", domain.QueryComparative},
		{"how to file a suspicious activity report", domain.QueryProcedural},
		{"analyze the effectiveness of sanctions screening", domain.QueryAnalytical},
		{"tell me about correspondent banking risks", domain.QueryExploratory},
		{"latest developments in financial regulation", domain.QueryExploratory},
	}
	for _, tc := range cases {
		got := analyzer.Analyze(tc.query).Type
		if got != tc.want {
			t.Fatalf("Analyze(%q).Type = %s, want %s", tc.query, got, tc.want)
		}
	}
}

func TestAnalyzeFirstMatchingCategoryWins(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	// Holds both a factual and a comparative trigger: factual is checked
	// first, so it wins.
	c := analyzer.Analyze("what is the difference between CDD and EDD")
	if c.Type != domain.QueryFactual {
		t.Fatalf("expected factual to win over comparative, got %s", c.Type)
	}

	// Comparative and procedural triggers: comparative is checked first.
	c = analyzer.Analyze("compare how to file a report in both regimes")
	if c.Type != domain.QueryComparative {
		t.Fatalf("expected comparative to win over procedural, got %s", c.Type)
	}
}

func TestAnalyzeComplexityByWordCountAndKeywords(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	if got := analyzer.Analyze("sanctions list update").Complexity; got != domain.ComplexitySimple {
		t.Fatalf("expected simple for short query, got %s", got)
	}
	if got := analyzer.Analyze("tell me about the general risks of wire transfers today").Complexity; got != domain.ComplexityModerate {
		t.Fatalf("expected moderate, got %s", got)
	}
	if got := analyzer.Analyze("please give a thorough treatment of beneficial ownership rules").Complexity; got != domain.ComplexityComplex {
		t.Fatalf("expected complex for keyword trigger, got %s", got)
	}
	long := "please walk me through every obligation a reporting entity has when onboarding a new foreign correspondent banking relationship in detail"
	if got := analyzer.Analyze(long).Complexity; got != domain.ComplexityComplex {
		t.Fatalf("expected complex for long query, got %s", got)
	}
}

func TestAnalyzeTierNeeds(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	c := analyzer.Analyze("what is a politically exposed person")
	if !c.NeedsChunks || c.NeedsSummaries {
		t.Fatalf("factual queries should need chunks only, got chunks=%v summaries=%v", c.NeedsChunks, c.NeedsSummaries)
	}

	c = analyzer.Analyze("tell me about proliferation financing controls")
	if !c.NeedsChunks || !c.NeedsSummaries {
		t.Fatalf("exploratory queries should need both tiers, got chunks=%v summaries=%v", c.NeedsChunks, c.NeedsSummaries)
	}
}

func TestAnalyzeExtractsAtMostOneHintPerField(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	hints := analyzer.Analyze("what does FATF say about crypto and sanctions").FilterHints
	if len(hints) != 2 {
		t.Fatalf("expected one organization and one topic hint, got %v", hints)
	}
	if hints[0].Field != domain.FilterOrganization || hints[0].Value != "FATF" {
		t.Fatalf("expected FATF organization hint, got %+v", hints[0])
	}
	if hints[1].Field != domain.FilterTopic || hints[1].Value != "virtual_assets" {
		t.Fatalf("expected virtual_assets topic hint, got %+v", hints[1])
	}
}

func TestAnalyzeHintsMatchOnWordBoundaries(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	// "sar" inside "necessary" must not produce a reporting topic hint.
	hints := analyzer.Analyze("what documentation is necessary for onboarding").FilterHints
	if len(hints) != 0 {
		t.Fatalf("expected no hints, got %v", hints)
	}
}

func TestResultLimitsScalesWithComplexityAndScope(t *testing.T) {
	analyzer := NewQueryAnalyzer(nil)

	base := analyzer.ResultLimits(domain.QueryCharacteristics{
		Type: domain.QueryExploratory, Complexity: domain.ComplexityModerate, Scope: domain.ScopeMedium,
	})
	if base.Chunks != 10 || base.Summaries != 5 {
		t.Fatalf("expected exploratory base 10/5, got %d/%d", base.Chunks, base.Summaries)
	}

	simple := analyzer.ResultLimits(domain.QueryCharacteristics{
		Type: domain.QueryExploratory, Complexity: domain.ComplexitySimple, Scope: domain.ScopeMedium,
	})
	if simple.Chunks != 6 || simple.Summaries != 3 {
		t.Fatalf("expected simple 6/3, got %d/%d", simple.Chunks, simple.Summaries)
	}

	complexBroad := analyzer.ResultLimits(domain.QueryCharacteristics{
		Type: domain.QueryExploratory, Complexity: domain.ComplexityComplex, Scope: domain.ScopeBroad,
	})
	// 10*1.5=15 ceil, then 15*1.3=19.5 floor -> 19; 5*1.5=7.5 ceil 8, 8*1.3=10.4 floor 10.
	if complexBroad.Chunks != 19 || complexBroad.Summaries != 10 {
		t.Fatalf("expected complex broad 19/10, got %d/%d", complexBroad.Chunks, complexBroad.Summaries)
	}

	if complexBroad.Chunks <= simple.Chunks || complexBroad.Summaries <= simple.Summaries {
		t.Fatalf("complex broad limits must exceed simple limits")
	}
}

func TestResultLimitsNeverBelowOne(t *testing.T) {
	analyzer := NewQueryAnalyzer(map[domain.QueryType]domain.ResultLimits{
		domain.QueryFactual: {Chunks: 1, Summaries: 1},
	})

	limits := analyzer.ResultLimits(domain.QueryCharacteristics{
		Type: domain.QueryFactual, Complexity: domain.ComplexitySimple, Scope: domain.ScopeNarrow,
	})
	if limits.Chunks < 1 || limits.Summaries < 1 {
		t.Fatalf("limits must stay >= 1, got %d/%d", limits.Chunks, limits.Summaries)
	}
}
