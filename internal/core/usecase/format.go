package usecase

import (
	"strings"

	"github.com/akosterin/docqa/internal/core/domain"
)

// formatRules are evaluated in this fixed order; the first matching trigger
// set wins. The order is independent of the query-type classification: a
// factual query for retrieval purposes can still want a blog post.
var formatRules = []struct {
	triggers []string
	profile  domain.FormatProfile
}{
	{
		triggers: []string{"brief", "summarize", "summary", "key points", "quick overview"},
		profile: domain.FormatProfile{
			Type: domain.FormatBriefSummary, Length: "short", Structure: domain.StructureBulletPoints,
			Temperature: 0.15, MaxTokens: 250, Style: "concise", MinCitations: 3,
		},
	},
	{
		triggers: []string{"tweet", "twitter", "social media", "post"},
		profile: domain.FormatProfile{
			Type: domain.FormatSocialMedia, Length: "brief", Structure: domain.StructureSingleBlock,
			Temperature: 0.3, MaxTokens: 150, Style: "engaging", MinCitations: 0,
		},
	},
	{
		triggers: []string{"blog", "article", "write about", "explain in detail"},
		profile: domain.FormatProfile{
			Type: domain.FormatBlogPost, Length: "long", Structure: domain.StructureSections,
			Temperature: 0.35, MaxTokens: 2000, Style: "narrative", MinCitations: 5,
		},
	},
	{
		triggers: []string{"newsletter", "update", "digest", "bulletin"},
		profile: domain.FormatProfile{
			Type: domain.FormatNewsletter, Length: "medium-long", Structure: domain.StructureSections,
			Temperature: 0.3, MaxTokens: 1500, Style: "informative", MinCitations: 5,
		},
	},
	{
		triggers: []string{"outline", "presentation", "talk", "speech", "structure", "bullets"},
		profile: domain.FormatProfile{
			Type: domain.FormatOutline, Length: "medium", Structure: domain.StructureHierarchical,
			Temperature: 0.25, MaxTokens: 1200, Style: "structured", MinCitations: 5,
		},
	},
	{
		triggers: []string{"protocol", "procedure", "process", "steps", "how to", "guide"},
		profile: domain.FormatProfile{
			Type: domain.FormatProtocol, Length: "medium-long", Structure: domain.StructureNumberedSteps,
			Temperature: 0.15, MaxTokens: 1500, Style: "precise", MinCitations: 5,
		},
	},
	{
		triggers: []string{"report", "analysis", "findings", "assessment"},
		profile: domain.FormatProfile{
			Type: domain.FormatReport, Length: "long", Structure: domain.StructureSections,
			Temperature: 0.2, MaxTokens: 3000, Style: "formal", MinCitations: 7,
		},
	},
	{
		triggers: []string{"comprehensive", "in-depth", "detailed analysis", "thorough", "complete"},
		profile: domain.FormatProfile{
			Type: domain.FormatComprehensiveAnalysis, Length: "comprehensive", Structure: domain.StructureSections,
			Temperature: 0.25, MaxTokens: 4000, Style: "analytical", MinCitations: 10,
		},
	},
	{
		triggers: []string{"what is", "what are", "define", "explain"},
		profile: domain.FormatProfile{
			Type: domain.FormatFactualAnswer, Length: "medium", Structure: domain.StructureParagraphs,
			Temperature: 0.2, MaxTokens: 1500, Style: "direct", MinCitations: 5,
		},
	},
}

var defaultFormatProfile = domain.FormatProfile{
	Type: domain.FormatGeneralAnswer, Length: "medium", Structure: domain.StructureParagraphs,
	Temperature: 0.25, MaxTokens: 2000, Style: "balanced", MinCitations: 5,
}

// DetectFormat classifies the query's desired output shape. Detection never
// fails: queries with no trigger fall back to the general answer profile.
func DetectFormat(query string) domain.FormatProfile {
	lower := strings.ToLower(query)
	for _, rule := range formatRules {
		for _, trigger := range rule.triggers {
			if containsPhrase(lower, trigger) {
				return rule.profile
			}
		}
	}
	return defaultFormatProfile
}
