package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/google/uuid"

	"github.com/akosterin/docqa/internal/core/domain"
)

// UsageRepository persists completion-call usage rows and per-answer audit
// rows. Both are append-only.
type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *UsageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS llm_calls (
	id TEXT PRIMARY KEY,
	operation TEXT NOT NULL,
	model TEXT NOT NULL,
	latency_ms DOUBLE PRECISION NOT NULL,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS answers (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	query_type TEXT NOT NULL,
	format_type TEXT NOT NULL,
	model_used TEXT NOT NULL,
	source_count INTEGER NOT NULL DEFAULT 0,
	distinct_citations INTEGER NOT NULL DEFAULT 0,
	citation_shortfall BOOLEAN NOT NULL DEFAULT FALSE,
	no_context BOOLEAN NOT NULL DEFAULT FALSE,
	duration_ms DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_llm_calls_created_at ON llm_calls(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_llm_calls_model ON llm_calls(model);
CREATE INDEX IF NOT EXISTS idx_answers_created_at ON answers(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *UsageRepository) RecordCompletion(ctx context.Context, usage domain.CompletionUsage) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO llm_calls (
	id, operation, model, latency_ms, prompt_tokens, output_tokens, error_message, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		uuid.NewString(), usage.Operation, usage.Model, usage.LatencyMS,
		usage.PromptTokens, usage.OutputTokens, usage.ErrorMessage, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

func (r *UsageRepository) RecordAnswer(ctx context.Context, record domain.AnswerRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO answers (
	id, query, query_type, format_type, model_used, source_count, distinct_citations, citation_shortfall, no_context, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		uuid.NewString(), record.Query, string(record.QueryType), string(record.FormatType), record.ModelUsed,
		record.SourceCount, record.DistinctCitations, record.CitationShortfall, record.NoContext,
		record.DurationMS, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}
