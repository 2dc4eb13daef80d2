package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akosterin/docqa/internal/core/domain"
)

// completionFake scripts the completion provider per call. The generate
// callback sees the requested model so fallback-chain tests can fail the
// primary and succeed on a fallback.
type completionFake struct {
	generate func(prompt string, temperature float64, maxTokens int, model string) (string, error)

	prompts []string
	models  []string
}

func (f *completionFake) Generate(_ context.Context, prompt string, temperature float64, maxTokens int, model string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	if f.generate == nil {
		return "", errors.New("no script")
	}
	return f.generate(prompt, temperature, maxTokens, model)
}

type usageStoreFake struct {
	completions []domain.CompletionUsage
	answers     []domain.AnswerRecord
	err         error
}

func (f *usageStoreFake) RecordCompletion(_ context.Context, usage domain.CompletionUsage) error {
	f.completions = append(f.completions, usage)
	return f.err
}

func (f *usageStoreFake) RecordAnswer(_ context.Context, record domain.AnswerRecord) error {
	f.answers = append(f.answers, record)
	return f.err
}

func testProfile(minCitations int) domain.FormatProfile {
	return domain.FormatProfile{
		Type: domain.FormatGeneralAnswer, Length: "medium", Structure: domain.StructureParagraphs,
		Temperature: 0.25, MaxTokens: 2000, Style: "balanced", MinCitations: minCitations,
	}
}

func TestSynthesizeZeroContextNeverCallsProvider(t *testing.T) {
	completion := &completionFake{}
	s := NewSynthesizer(completion, []string{"primary"}, nil, nil, nil)

	result, err := s.Synthesize(context.Background(), "q", nil, nil, testProfile(5), nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !result.NoContext {
		t.Fatalf("expected NoContext flag")
	}
	if result.ModelUsed != "none" {
		t.Fatalf("expected no model used, got %q", result.ModelUsed)
	}
	if result.Answer == "" {
		t.Fatalf("expected deterministic no-context answer")
	}
	if len(completion.prompts) != 0 {
		t.Fatalf("provider must not be called with zero context, got %d calls", len(completion.prompts))
	}
}

func TestSynthesizeFallsBackToNextModel(t *testing.T) {
	completion := &completionFake{
		generate: func(_ string, _ float64, _ int, model string) (string, error) {
			if model == "primary" {
				return "", errors.New("quota exceeded")
			}
			return "Answer citing [Document 1] and [Chunk 1].", nil
		},
	}
	usage := &usageStoreFake{}
	recorded := newPipelineMetricsFake()
	s := NewSynthesizer(completion, []string{"primary", "backup"}, usage, recorded, nil)

	summaries := []domain.SearchResult{{SourceID: "doc-1", Title: "Guidance", Content: "summary text"}}
	chunks := []domain.SearchResult{{SourceID: "doc-2", Title: "Detail", Content: "chunk text"}}

	result, err := s.Synthesize(context.Background(), "q", summaries, chunks, testProfile(0), nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if result.ModelUsed != "backup" {
		t.Fatalf("expected backup model, got %q", result.ModelUsed)
	}
	if len(completion.models) != 2 {
		t.Fatalf("expected both models tried, got %v", completion.models)
	}
	// Every attempt leaves a usage row, the failed primary included.
	if len(usage.completions) != 2 {
		t.Fatalf("expected 2 usage rows, got %d", len(usage.completions))
	}
	if usage.completions[0].ErrorMessage == "" {
		t.Fatalf("expected failed attempt to carry its error message")
	}
	// Depth 1 = the first fallback produced the answer; token usage is
	// attributed to that model only.
	if len(recorded.fallbackDepths) != 1 || recorded.fallbackDepths[0] != 1 {
		t.Fatalf("expected fallback depth 1 recorded, got %v", recorded.fallbackDepths)
	}
	if len(recorded.tokenModels) != 1 || recorded.tokenModels[0] != "backup" {
		t.Fatalf("expected token usage for the backup model, got %v", recorded.tokenModels)
	}
}

func TestSynthesizeExhaustedChainReturnsGenerationUnavailable(t *testing.T) {
	completion := &completionFake{
		generate: func(string, float64, int, string) (string, error) {
			return "", errors.New("backend down")
		},
	}
	s := NewSynthesizer(completion, []string{"primary", "backup"}, nil, nil, nil)

	_, err := s.Synthesize(context.Background(), "q",
		[]domain.SearchResult{{SourceID: "doc-1", Content: "text"}}, nil, testProfile(0), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestSynthesizeCountsDistinctCitations(t *testing.T) {
	completion := &completionFake{
		generate: func(string, float64, int, string) (string, error) {
			// Two markers resolving to doc-1 plus one to doc-2: 2 distinct.
			return "Per [Document 1] and [Chunk 1], see also [Chunk 2].", nil
		},
	}
	s := NewSynthesizer(completion, []string{"primary"}, nil, nil, nil)

	summaries := []domain.SearchResult{{SourceID: "doc-1", Content: "a"}}
	chunks := []domain.SearchResult{
		{SourceID: "doc-1", Content: "b"},
		{SourceID: "doc-2", Content: "c"},
	}

	result, err := s.Synthesize(context.Background(), "q", summaries, chunks, testProfile(3), nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(result.ExplicitCitations) != 3 {
		t.Fatalf("expected 3 markers, got %v", result.ExplicitCitations)
	}
	if result.DistinctCitations != 2 {
		t.Fatalf("expected 2 distinct sources, got %d", result.DistinctCitations)
	}
	if !result.CitationShortfall {
		t.Fatalf("expected shortfall flag for 2 < 3 distinct citations")
	}
}

func TestSynthesizeShortfallIsNotAFailure(t *testing.T) {
	completion := &completionFake{
		generate: func(string, float64, int, string) (string, error) {
			return "Answer with no citations at all.", nil
		},
	}
	s := NewSynthesizer(completion, []string{"primary"}, nil, nil, nil)

	result, err := s.Synthesize(context.Background(), "q",
		[]domain.SearchResult{{SourceID: "doc-1", Content: "a"}}, nil, testProfile(5), nil)
	if err != nil {
		t.Fatalf("shortfall must not fail synthesis: %v", err)
	}
	if !result.CitationShortfall || result.DistinctCitations != 0 {
		t.Fatalf("expected flagged shortfall, got %+v", result)
	}
}

func TestSynthesizePromptLabelsSourcesAndCarriesQuery(t *testing.T) {
	completion := &completionFake{
		generate: func(string, float64, int, string) (string, error) {
			return "ok", nil
		},
	}
	s := NewSynthesizer(completion, []string{"primary"}, nil, nil, nil)

	summaries := []domain.SearchResult{{SourceID: "doc-1", Title: "FATF Guidance", Content: "summary body"}}
	chunks := []domain.SearchResult{{SourceID: "doc-2", Title: "Detail", Anchor: "page 7", Content: "chunk body"}}

	_, err := s.Synthesize(context.Background(), "what is the travel rule", summaries, chunks, testProfile(5), nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	prompt := completion.prompts[0]
	for _, want := range []string{
		"[Document 1] FATF Guidance",
		"[Chunk 1] Detail (page 7)",
		"what is the travel rule",
		"at least 5 citations",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSynthesizeTemperatureOverride(t *testing.T) {
	var seenTemperature float64
	completion := &completionFake{
		generate: func(_ string, temperature float64, _ int, _ string) (string, error) {
			seenTemperature = temperature
			return "ok", nil
		},
	}
	s := NewSynthesizer(completion, []string{"primary"}, nil, nil, nil)

	override := 0.7
	result, err := s.Synthesize(context.Background(), "q",
		[]domain.SearchResult{{SourceID: "doc-1", Content: "a"}}, nil, testProfile(0), &override)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if seenTemperature != 0.7 || result.TemperatureUsed != 0.7 {
		t.Fatalf("expected override temperature 0.7, got call=%v result=%v", seenTemperature, result.TemperatureUsed)
	}
}
