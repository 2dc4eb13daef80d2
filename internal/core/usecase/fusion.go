package usecase

import (
	"sort"

	"github.com/akosterin/docqa/internal/core/domain"
)

type fusedResult struct {
	result domain.SearchResult
	score  float64
}

// fuseRankedLists merges per-query result lists with Reciprocal Rank Fusion:
// each appearance contributes 1/(k+rank) with a 0-indexed rank. The damping
// constant keeps any single query list from dominating. With one list the
// fused order reproduces the original order.
func fuseRankedLists(lists [][]domain.SearchResult, rrfK int) []domain.SearchResult {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]fusedResult)
	order := make([]string, 0)

	for _, list := range lists {
		for rank, result := range list {
			key := result.ID
			if key == "" {
				key = result.SourceID + "|" + result.Anchor + "|" + result.Content
			}
			entry, seen := acc[key]
			if !seen {
				entry.result = result
				order = append(order, key)
			}
			entry.score += 1.0 / float64(rrfK+rank)
			acc[key] = entry
		}
	}

	out := make([]domain.SearchResult, 0, len(acc))
	for _, key := range order {
		entry := acc[key]
		entry.result.Score = entry.score
		out = append(out, entry.result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func trimResults(results []domain.SearchResult, limit int) []domain.SearchResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}
