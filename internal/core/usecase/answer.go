package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/akosterin/docqa/internal/core/domain"
	"github.com/akosterin/docqa/internal/core/ports"
	"github.com/akosterin/docqa/internal/observability/logging"
)

// AnswerQueryUseCase runs the full pipeline: analyze, detect format,
// retrieve, budget, synthesize. It is the only implementation of
// ports.AnswerService.
type AnswerQueryUseCase struct {
	analyzer     *QueryAnalyzer
	retriever    *TwoTierRetriever
	synthesizer  *Synthesizer
	usage        ports.UsageStore
	publisher    ports.EventPublisher
	tokenBudget  int
	maxDeadline  time.Duration
	logger       *slog.Logger
}

type AnswerUseCaseConfig struct {
	// ContextTokenBudget bounds the synthesis context size.
	ContextTokenBudget int
	// MaxDeadline caps the per-request deadline a caller may ask for.
	MaxDeadline time.Duration
}

func NewAnswerQueryUseCase(
	analyzer *QueryAnalyzer,
	retriever *TwoTierRetriever,
	synthesizer *Synthesizer,
	usage ports.UsageStore,
	publisher ports.EventPublisher,
	cfg AnswerUseCaseConfig,
	logger *slog.Logger,
) *AnswerQueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ContextTokenBudget <= 0 {
		cfg.ContextTokenBudget = 24000
	}
	return &AnswerQueryUseCase{
		analyzer:    analyzer,
		retriever:   retriever,
		synthesizer: synthesizer,
		usage:       usage,
		publisher:   publisher,
		tokenBudget: cfg.ContextTokenBudget,
		maxDeadline: cfg.MaxDeadline,
		logger:      logger,
	}
}

func (uc *AnswerQueryUseCase) AnswerQuery(ctx context.Context, query string, opts ports.AnswerOptions) (*domain.SynthesisResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapErrorMessage(domain.ErrInvalidQuery, "answer query", "query must not be empty")
	}

	if deadline := uc.effectiveDeadline(opts.Deadline); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	filterLogic := opts.FilterLogic
	if filterLogic == "" {
		filterLogic = domain.FilterLogicOR
	}

	start := time.Now()

	characteristics := uc.analyzer.Analyze(query)
	profile := DetectFormat(query)

	retrieval, err := uc.retriever.Search(ctx, query, characteristics, filterLogic)
	if err != nil {
		return nil, err
	}

	summaries, chunks := fitContextToBudget(retrieval.Summaries, retrieval.Chunks, uc.tokenBudget)

	result, err := uc.synthesizer.Synthesize(ctx, query, summaries, chunks, profile, opts.TemperatureOverride)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	logging.FromContext(ctx, uc.logger).Info("query_answered",
		"query_type", characteristics.Type,
		"format", profile.Type,
		"model", result.ModelUsed,
		"sources", len(result.Sources),
		"distinct_citations", result.DistinctCitations,
		"no_context", result.NoContext,
		"duration_ms", duration.Milliseconds(),
	)

	uc.recordAnswer(ctx, characteristics, result, duration)
	uc.publishAnswered(ctx, characteristics, result)

	return result, nil
}

func (uc *AnswerQueryUseCase) effectiveDeadline(requested time.Duration) time.Duration {
	if requested <= 0 {
		return uc.maxDeadline
	}
	if uc.maxDeadline > 0 && requested > uc.maxDeadline {
		return uc.maxDeadline
	}
	return requested
}

// recordAnswer and publishAnswered are best effort: the answer has already
// been produced, audit and analytics failures only get logged.
func (uc *AnswerQueryUseCase) recordAnswer(ctx context.Context, c domain.QueryCharacteristics, result *domain.SynthesisResult, duration time.Duration) {
	if uc.usage == nil {
		return
	}
	record := domain.AnswerRecord{
		Query:             result.Query,
		QueryType:         c.Type,
		FormatType:        result.Format.Type,
		ModelUsed:         result.ModelUsed,
		SourceCount:       len(result.Sources),
		DistinctCitations: result.DistinctCitations,
		CitationShortfall: result.CitationShortfall,
		NoContext:         result.NoContext,
		DurationMS:        float64(duration.Microseconds()) / 1000.0,
	}
	if err := uc.usage.RecordAnswer(ctx, record); err != nil {
		logging.FromContext(ctx, uc.logger).Warn("answer_record_failed", "error", err)
	}
}

func (uc *AnswerQueryUseCase) publishAnswered(ctx context.Context, c domain.QueryCharacteristics, result *domain.SynthesisResult) {
	if uc.publisher == nil {
		return
	}
	event := domain.AnswerEvent{
		Query:             result.Query,
		QueryType:         c.Type,
		FormatType:        result.Format.Type,
		ModelUsed:         result.ModelUsed,
		SourceCount:       len(result.Sources),
		CitationShortfall: result.CitationShortfall,
		NoContext:         result.NoContext,
	}
	if err := uc.publisher.PublishAnswered(ctx, event); err != nil {
		logging.FromContext(ctx, uc.logger).Warn("answer_event_publish_failed", "error", err)
	}
}
