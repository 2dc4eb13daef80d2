package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/akosterin/docqa/internal/core/domain"
	"github.com/akosterin/docqa/internal/core/ports"
)

const (
	rerankTemperature   = 0.1
	rerankMaxTokens     = 100
	rerankSnippetLength = 300
)

var rerankIndexPattern = regexp.MustCompile(`\d+`)

// Reranker reorders a candidate head by completion-provider relevance
// scoring against the original, non-expanded query. It scores only the top
// candidateCap results to bound provider cost; the tail keeps fusion order.
type Reranker struct {
	completion   ports.CompletionProvider
	model        string
	candidateCap int
}

func NewReranker(completion ports.CompletionProvider, model string, candidateCap int) *Reranker {
	if candidateCap <= 0 {
		candidateCap = 15
	}
	return &Reranker{completion: completion, model: model, candidateCap: candidateCap}
}

// Rerank returns the candidates reordered by model-judged relevance. The
// error case is explicit: the caller keeps the fusion order when reranking
// fails, it never aborts retrieval.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.SearchResult) ([]domain.SearchResult, error) {
	if len(candidates) < 2 {
		return candidates, nil
	}

	head := candidates
	if len(head) > r.candidateCap {
		head = candidates[:r.candidateCap]
	}

	raw, err := r.completion.Generate(ctx, buildRerankPrompt(query, head), rerankTemperature, rerankMaxTokens, r.model)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCompletionProvider, "rerank results", err)
	}

	order := parseRerankOrder(raw, len(head))

	out := make([]domain.SearchResult, 0, len(candidates))
	for position, idx := range order {
		result := head[idx]
		// Reranker-assigned score: rank position on a descending scale so
		// downstream ordering remains score-consistent.
		result.Score = float64(len(order) - position)
		out = append(out, result)
	}
	out = append(out, candidates[len(head):]...)
	return out, nil
}

func buildRerankPrompt(query string, candidates []domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given this query: %q\n\n", query)
	b.WriteString("Rate the relevance of each document snippet from 0-10 (10 = most relevant).\n")
	b.WriteString("Return ONLY the indices in order of relevance (most relevant first), comma-separated.\n\nSnippets:\n")
	for i, candidate := range candidates {
		snippet := cutAtRuneBoundary(candidate.Content, rerankSnippetLength)
		fmt.Fprintf(&b, "[%d] %s\n", i, snippet)
	}
	b.WriteString("\nOrder (indices only, comma-separated):")
	return b.String()
}

// parseRerankOrder extracts a permutation of [0, n) from the model response.
// Indices the model omitted keep their original relative order at the end.
func parseRerankOrder(raw string, n int) []int {
	seen := make(map[int]struct{}, n)
	order := make([]int, 0, n)

	for _, token := range rerankIndexPattern.FindAllString(raw, -1) {
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 || idx >= n {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		order = append(order, idx)
	}

	for i := 0; i < n; i++ {
		if _, ok := seen[i]; !ok {
			order = append(order, i)
		}
	}
	return order
}
