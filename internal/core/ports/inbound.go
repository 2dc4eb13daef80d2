package ports

import (
	"context"
	"time"

	"github.com/akosterin/docqa/internal/core/domain"
)

// AnswerOptions carries per-request overrides for the pipeline entry point.
type AnswerOptions struct {
	FilterLogic         domain.FilterLogic
	TemperatureOverride *float64
	Deadline            time.Duration
}

// AnswerService is the single exposed operation of the QA core.
type AnswerService interface {
	AnswerQuery(ctx context.Context, query string, opts AnswerOptions) (*domain.SynthesisResult, error)
}
