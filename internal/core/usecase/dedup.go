package usecase

import (
	"strings"
	"unicode"

	"github.com/akosterin/docqa/internal/core/domain"
)

// dedupeResults removes duplicates from a fused, score-ordered list. Two
// results are duplicates when they share (source_id, anchor) or when their
// content token sets overlap above the Jaccard threshold. The list is ordered
// by fused score descending, so keeping the first occurrence keeps the
// higher-scored instance; relative order of survivors is preserved.
func dedupeResults(results []domain.SearchResult, similarityThreshold float64) []domain.SearchResult {
	if len(results) < 2 {
		return results
	}
	if similarityThreshold <= 0 || similarityThreshold > 1 {
		similarityThreshold = 0.85
	}

	seenAnchors := make(map[string]struct{}, len(results))
	survivors := make([]domain.SearchResult, 0, len(results))
	survivorTokens := make([]map[string]struct{}, 0, len(results))

	for _, result := range results {
		if result.SourceID != "" && result.Anchor != "" {
			key := result.SourceID + ":" + result.Anchor
			if _, dup := seenAnchors[key]; dup {
				continue
			}
			seenAnchors[key] = struct{}{}
		}

		tokens := contentTokenSet(result.Content)
		nearDuplicate := false
		for _, existing := range survivorTokens {
			if jaccardSimilarity(tokens, existing) >= similarityThreshold {
				nearDuplicate = true
				break
			}
		}
		if nearDuplicate {
			continue
		}

		survivors = append(survivors, result)
		survivorTokens = append(survivorTokens, tokens)
	}

	return survivors
}

func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for token := range small {
		if _, ok := large[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func contentTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 32)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
