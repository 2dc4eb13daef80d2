package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/akosterin/docqa/internal/core/domain"
	"github.com/akosterin/docqa/internal/core/ports"
	"github.com/akosterin/docqa/internal/observability/logging"
)

// searchStrategy is fully determined by the query characteristics.
type searchStrategy struct {
	expandQuery     bool
	rerank          bool
	deduplicate     bool
	searchChunks    bool
	searchSummaries bool
}

func selectSearchStrategy(c domain.QueryCharacteristics) searchStrategy {
	s := searchStrategy{
		// Reranking and deduplication have no precision downside beyond
		// latency, so they are always on.
		rerank:          true,
		deduplicate:     true,
		searchChunks:    c.NeedsChunks,
		searchSummaries: c.NeedsSummaries,
	}

	// Safety net: the analyzer never produces both false, but a search with
	// no tiers would be useless.
	if !s.searchChunks && !s.searchSummaries {
		s.searchChunks = true
		s.searchSummaries = true
	}

	// Expansion adds provider cost and can add noise on precise lookups.
	switch c.Type {
	case domain.QueryFactual, domain.QueryProcedural:
		return s
	}
	if c.Complexity == domain.ComplexitySimple {
		return s
	}
	s.expandQuery = true
	return s
}

type RetrieverConfig struct {
	RRFK           int
	DedupThreshold float64
}

// TwoTierRetriever orchestrates adaptive search across the summary and chunk
// indexes: strategy selection, optional expansion, rank fusion across query
// variations, deduplication and reranking.
type TwoTierRetriever struct {
	search   ports.SearchProvider
	analyzer *QueryAnalyzer
	expander *QueryExpander
	reranker *Reranker
	cfg      RetrieverConfig
	metrics  ports.PipelineMetrics
	logger   *slog.Logger
}

func NewTwoTierRetriever(
	search ports.SearchProvider,
	analyzer *QueryAnalyzer,
	expander *QueryExpander,
	reranker *Reranker,
	cfg RetrieverConfig,
	metrics ports.PipelineMetrics,
	logger *slog.Logger,
) *TwoTierRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &TwoTierRetriever{
		search:   search,
		analyzer: analyzer,
		expander: expander,
		reranker: reranker,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Search runs the full two-tier retrieval. Individual provider failures
// contribute zero results; an empty result set is a valid "no matches"
// state, not an error. Context cancellation is the only error returned.
func (r *TwoTierRetriever) Search(
	ctx context.Context,
	query string,
	characteristics domain.QueryCharacteristics,
	filterLogic domain.FilterLogic,
) (*domain.RetrievalResult, error) {
	strategy := selectSearchStrategy(characteristics)
	limits := r.analyzer.ResultLimits(characteristics)
	filterExpression := BuildFilterExpression(characteristics.FilterHints, filterLogic)

	queries := []string{query}
	expansionApplied := false
	if strategy.expandQuery && r.expander != nil {
		expanded, err := r.expander.Expand(ctx, query)
		if err != nil {
			logging.FromContext(ctx, r.logger).Warn("query_expansion_failed", "error", err)
			if r.metrics != nil {
				r.metrics.ExpansionFallback()
			}
		} else {
			queries = expanded
			expansionApplied = len(expanded) > 1
		}
	}

	chunkLists, summaryLists := r.runSearches(ctx, queries, strategy, limits, filterExpression)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.RetrievalResult{
		Query:           query,
		ExpandedQueries: queries,
		Applied: domain.AppliedOptimizations{
			QueryExpansion:   expansionApplied,
			Deduplication:    strategy.deduplicate,
			FilterExpression: filterExpression,
		},
	}
	if filterExpression != "" {
		result.Applied.FilterLogic = string(filterLogic)
	}

	if strategy.searchChunks {
		result.Chunks, result.Applied.ChunksReranked = r.finalizeTier(ctx, domain.TierChunk, query, chunkLists, strategy, limits.Chunks)
	}
	if strategy.searchSummaries {
		result.Summaries, result.Applied.SummariesReranked = r.finalizeTier(ctx, domain.TierSummary, query, summaryLists, strategy, limits.Summaries)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.RetrievedResults(domain.TierChunk, len(result.Chunks))
		r.metrics.RetrievedResults(domain.TierSummary, len(result.Summaries))
	}

	logging.FromContext(ctx, r.logger).Info("two_tier_search_done",
		"query_type", characteristics.Type,
		"complexity", characteristics.Complexity,
		"scope", characteristics.Scope,
		"queries", len(queries),
		"chunks", len(result.Chunks),
		"summaries", len(result.Summaries),
		"expansion", result.Applied.QueryExpansion,
	)

	return result, nil
}

type searchTask struct {
	tier       domain.Tier
	queryIndex int
	query      string
	limit      int
}

// runSearches issues every (tier, query) search concurrently. The calls are
// independent and fusion is order-insensitive, so completion order does not
// matter; lists are still collected in query order for determinism.
func (r *TwoTierRetriever) runSearches(
	ctx context.Context,
	queries []string,
	strategy searchStrategy,
	limits domain.ResultLimits,
	filterExpression string,
) (chunkLists, summaryLists [][]domain.SearchResult) {
	tasks := make([]searchTask, 0, 2*len(queries))
	for i, q := range queries {
		if strategy.searchChunks {
			tasks = append(tasks, searchTask{tier: domain.TierChunk, queryIndex: i, query: q, limit: limits.Chunks})
		}
		if strategy.searchSummaries {
			tasks = append(tasks, searchTask{tier: domain.TierSummary, queryIndex: i, query: q, limit: limits.Summaries})
		}
	}

	chunkLists = make([][]domain.SearchResult, len(queries))
	summaryLists = make([][]domain.SearchResult, len(queries))

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, task := range tasks {
		wg.Add(1)
		go func(task searchTask) {
			defer wg.Done()
			results, err := r.search.Search(ctx, task.tier, task.query, task.limit, filterExpression)
			if err != nil {
				// A failed call contributes zero results; the other
				// tier/query calls still count.
				logging.FromContext(ctx, r.logger).Warn("search_call_failed", "tier", task.tier, "error", err)
				return
			}
			mu.Lock()
			if task.tier == domain.TierChunk {
				chunkLists[task.queryIndex] = results
			} else {
				summaryLists[task.queryIndex] = results
			}
			mu.Unlock()
		}(task)
	}
	wg.Wait()
	return chunkLists, summaryLists
}

// finalizeTier fuses, deduplicates, reranks and truncates one tier's lists.
func (r *TwoTierRetriever) finalizeTier(
	ctx context.Context,
	tier domain.Tier,
	originalQuery string,
	lists [][]domain.SearchResult,
	strategy searchStrategy,
	limit int,
) (results []domain.SearchResult, reranked bool) {
	fused := fuseRankedLists(lists, r.cfg.RRFK)
	if strategy.deduplicate {
		fused = dedupeResults(fused, r.cfg.DedupThreshold)
	}

	if strategy.rerank && r.reranker != nil && len(fused) > 1 {
		ordered, err := r.reranker.Rerank(ctx, originalQuery, fused)
		if err != nil {
			// Keep fusion order; reranking failure never aborts retrieval.
			logging.FromContext(ctx, r.logger).Warn("rerank_failed", "tier", tier, "error", err)
			if r.metrics != nil {
				r.metrics.RerankFallback(tier)
			}
		} else {
			fused = ordered
			reranked = true
		}
	}

	return trimResults(fused, limit), reranked
}
