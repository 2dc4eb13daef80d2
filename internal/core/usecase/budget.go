package usecase

import (
	"unicode/utf8"

	"github.com/akosterin/docqa/internal/core/domain"
)

const (
	// Rough heuristic: ~4 characters per token.
	charsPerToken = 4

	// Reserved for the prompt scaffolding around the context.
	promptOverheadTokens = 2000

	// Share of the remaining budget reserved for each tier. Summaries are
	// denser per token, chunks carry the granular evidence.
	summaryBudgetShare = 0.2
	chunkBudgetShare   = 0.8

	minSummaryTokens = 100
	minChunkTokens   = 200
)

func estimateTokenCount(text string) int {
	return len(text) / charsPerToken
}

// fitContextToBudget selects and truncates retrieved material to fit the
// token budget. Results are consumed in their given (already ranked) order;
// a result that no longer fits is truncated rather than dropped when enough
// room remains for an informative prefix, and the top-ranked result of each
// tier is always kept, truncated if necessary.
func fitContextToBudget(
	summaries, chunks []domain.SearchResult,
	budgetTokens int,
) (fittedSummaries, fittedChunks []domain.SearchResult) {
	available := budgetTokens - promptOverheadTokens
	if available < 0 {
		available = 0
	}

	summaryBudget := int(float64(available) * summaryBudgetShare)
	chunkBudget := int(float64(available) * chunkBudgetShare)

	fittedSummaries = fitTier(summaries, summaryBudget, minSummaryTokens)
	fittedChunks = fitTier(chunks, chunkBudget, minChunkTokens)
	return fittedSummaries, fittedChunks
}

func fitTier(results []domain.SearchResult, budgetTokens, minTokens int) []domain.SearchResult {
	if len(results) == 0 {
		return nil
	}

	out := make([]domain.SearchResult, 0, len(results))
	used := 0

	for i, result := range results {
		cost := estimateTokenCount(result.Content)
		if used+cost <= budgetTokens {
			out = append(out, result)
			used += cost
			continue
		}

		remaining := budgetTokens - used
		if remaining >= minTokens {
			out = append(out, truncateContent(result, remaining))
		} else if i == 0 {
			// The top-ranked result is never dropped outright; keep a
			// minimal informative prefix even on a tiny budget.
			out = append(out, truncateContent(result, minTokens))
		}
		break
	}

	return out
}

func truncateContent(result domain.SearchResult, tokens int) domain.SearchResult {
	chars := tokens * charsPerToken
	if chars < len(result.Content) {
		result.Content = cutAtRuneBoundary(result.Content, chars) + "..."
	}
	return result
}

// cutAtRuneBoundary truncates s to at most max bytes without splitting a
// multi-byte rune.
func cutAtRuneBoundary(s string, max int) string {
	if max >= len(s) {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
