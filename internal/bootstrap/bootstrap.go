package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akosterin/docqa/internal/config"
	"github.com/akosterin/docqa/internal/core/ports"
	"github.com/akosterin/docqa/internal/core/usecase"
	"github.com/akosterin/docqa/internal/infrastructure/llm/gemini"
	natsqueue "github.com/akosterin/docqa/internal/infrastructure/queue/nats"
	"github.com/akosterin/docqa/internal/infrastructure/repository/postgres"
	"github.com/akosterin/docqa/internal/infrastructure/resilience"
	"github.com/akosterin/docqa/internal/infrastructure/search/vertex"
	"github.com/akosterin/docqa/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	AnswerService ports.AnswerService

	closeFn func()
}

const serviceName = "docqa-api"

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	usageRepo := postgres.NewUsageRepository(db)
	if err := usageRepo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	publisher, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event publisher: %w", err)
	}

	searchClient := vertex.New(
		cfg.SearchBaseURL,
		cfg.SearchAPIKey,
		cfg.SearchChunkServingPath,
		cfg.SearchSummaryServingPath,
		vertex.Options{ResilienceExecutor: executor},
	)
	llmClient := gemini.New(cfg.LLMBaseURL, cfg.LLMAPIKey, gemini.Options{
		ResilienceExecutor: executor,
	})

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)
	pipelineMetrics := serverMetrics.Pipeline(serviceName)

	analyzer := usecase.NewQueryAnalyzer(cfg.BaseResultLimits)
	expander := usecase.NewQueryExpander(llmClient, cfg.LLMExpansionModel)
	reranker := usecase.NewReranker(llmClient, cfg.LLMRerankModel, cfg.RerankCandidateCap)
	retriever := usecase.NewTwoTierRetriever(searchClient, analyzer, expander, reranker, usecase.RetrieverConfig{
		RRFK:           cfg.FusionRRFK,
		DedupThreshold: cfg.DedupThreshold,
	}, pipelineMetrics, logger)
	synthesizer := usecase.NewSynthesizer(llmClient, cfg.ModelChain(), usageRepo, pipelineMetrics, logger)

	answerUC := usecase.NewAnswerQueryUseCase(
		analyzer,
		retriever,
		synthesizer,
		usageRepo,
		publisher,
		usecase.AnswerUseCaseConfig{
			ContextTokenBudget: cfg.ContextTokenBudget,
			MaxDeadline:        time.Duration(cfg.AnswerTimeoutSeconds) * time.Second,
		},
		logger,
	)

	return &App{
		Config:        cfg,
		Metrics:       serverMetrics,
		AnswerService: answerUC,

		closeFn: func() {
			publisher.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
