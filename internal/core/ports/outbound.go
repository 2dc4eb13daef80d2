package ports

import (
	"context"

	"github.com/akosterin/docqa/internal/core/domain"
)

// SearchProvider queries one tier of the managed search index. Results come
// back ordered by the provider's own relevance score, descending.
type SearchProvider interface {
	Search(ctx context.Context, tier domain.Tier, query string, maxResults int, filterExpression string) ([]domain.SearchResult, error)
}

// CompletionProvider generates text from a prompt with explicit parameters.
type CompletionProvider interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int, model string) (string, error)
}

// UsageStore persists completion-call usage and answer audit rows.
type UsageStore interface {
	RecordCompletion(ctx context.Context, usage domain.CompletionUsage) error
	RecordAnswer(ctx context.Context, record domain.AnswerRecord) error
}

// EventPublisher emits answered-query events for downstream analytics.
type EventPublisher interface {
	PublishAnswered(ctx context.Context, event domain.AnswerEvent) error
}

// PipelineMetrics receives retrieval and generation observability signals.
// Implementations must be safe for concurrent use; a nil PipelineMetrics
// disables recording.
type PipelineMetrics interface {
	RetrievedResults(tier domain.Tier, count int)
	ExpansionFallback()
	RerankFallback(tier domain.Tier)
	ModelFallbackDepth(depth int)
	TokenUsage(model string, promptTokens, outputTokens int)
}
