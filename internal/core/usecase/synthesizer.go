package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/akosterin/docqa/internal/core/domain"
	"github.com/akosterin/docqa/internal/core/ports"
	"github.com/akosterin/docqa/internal/observability/logging"
)

const noContextAnswer = "No relevant documents were found for this query. " +
	"The knowledge base does not appear to contain information matching it; " +
	"try rephrasing the question or broadening its scope."

var (
	documentLabelPattern = regexp.MustCompile(`\[Document\s+(\d+)[^\]]*\]`)
	chunkLabelPattern    = regexp.MustCompile(`\[Chunk\s+(\d+)[^\]]*\]`)
)

// Synthesizer builds the format-aware prompt, walks the fallback model chain
// and validates the citation contract on the generated answer.
type Synthesizer struct {
	completion ports.CompletionProvider
	models     []string
	usage      ports.UsageStore
	metrics    ports.PipelineMetrics
	logger     *slog.Logger
}

// NewSynthesizer takes the ordered model chain: the primary model first,
// fallbacks after it.
func NewSynthesizer(completion ports.CompletionProvider, models []string, usage ports.UsageStore, metrics ports.PipelineMetrics, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{completion: completion, models: models, usage: usage, metrics: metrics, logger: logger}
}

func (s *Synthesizer) Synthesize(
	ctx context.Context,
	query string,
	summaries, chunks []domain.SearchResult,
	profile domain.FormatProfile,
	temperatureOverride *float64,
) (*domain.SynthesisResult, error) {
	temperature := profile.Temperature
	if temperatureOverride != nil {
		temperature = *temperatureOverride
	}

	// Total retrieval miss: answering from nothing would invite fabrication,
	// so the provider is never called with zero context.
	if len(summaries) == 0 && len(chunks) == 0 {
		return &domain.SynthesisResult{
			Query:             query,
			Answer:            noContextAnswer,
			Sources:           []domain.SearchResult{},
			ExplicitCitations: []string{},
			ModelUsed:         "none",
			Format:            profile,
			TemperatureUsed:   temperature,
			NoContext:         true,
		}, nil
	}

	prompt := buildSynthesisPrompt(query, summaries, chunks, profile)

	answer, modelUsed, err := s.generateWithFallback(ctx, prompt, temperature, profile.MaxTokens)
	if err != nil {
		return nil, err
	}

	citations, distinct := parseCitations(answer, summaries, chunks)

	result := &domain.SynthesisResult{
		Query:             query,
		Answer:            answer,
		Sources:           append(append([]domain.SearchResult{}, summaries...), chunks...),
		ExplicitCitations: citations,
		DistinctCitations: distinct,
		ModelUsed:         modelUsed,
		Format:            profile,
		TemperatureUsed:   temperature,
	}

	if profile.MinCitations > 0 && distinct < profile.MinCitations {
		result.CitationShortfall = true
		logging.FromContext(ctx, s.logger).Warn("citation_shortfall",
			"format", profile.Type,
			"required", profile.MinCitations,
			"found", distinct,
		)
	}

	return result, nil
}

// generateWithFallback walks the ordered model chain and returns the first
// successful completion. Every model is attempted regardless of the error
// subtype; exhausting the chain is the pipeline's one hard failure.
func (s *Synthesizer) generateWithFallback(ctx context.Context, prompt string, temperature float64, maxTokens int) (answer, modelUsed string, err error) {
	var lastErr error
	for depth, model := range s.models {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", "", ctxErr
		}

		start := time.Now()
		text, genErr := s.completion.Generate(ctx, prompt, temperature, maxTokens, model)
		s.recordCompletion(ctx, model, prompt, text, time.Since(start), genErr)
		if genErr != nil {
			logging.FromContext(ctx, s.logger).Warn("generation_model_failed", "model", model, "error", genErr)
			lastErr = genErr
			continue
		}
		if s.metrics != nil {
			s.metrics.ModelFallbackDepth(depth)
			s.metrics.TokenUsage(model, estimateTokenCount(prompt), estimateTokenCount(text))
		}
		return strings.TrimSpace(text), model, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no models configured")
	}
	return "", "", domain.WrapError(domain.ErrGenerationUnavailable, "synthesize answer", lastErr)
}

func (s *Synthesizer) recordCompletion(ctx context.Context, model, prompt, output string, latency time.Duration, genErr error) {
	if s.usage == nil {
		return
	}
	usage := domain.CompletionUsage{
		Operation:    "chat_answer",
		Model:        model,
		LatencyMS:    float64(latency.Microseconds()) / 1000.0,
		PromptTokens: estimateTokenCount(prompt),
		OutputTokens: estimateTokenCount(output),
	}
	if genErr != nil {
		usage.ErrorMessage = genErr.Error()
	}
	if err := s.usage.RecordCompletion(ctx, usage); err != nil {
		logging.FromContext(ctx, s.logger).Warn("usage_record_failed", "error", err)
	}
}

func buildSynthesisPrompt(query string, summaries, chunks []domain.SearchResult, profile domain.FormatProfile) string {
	var b strings.Builder

	b.WriteString("You are an expert assistant for a financial-crime compliance knowledge base.\n")
	b.WriteString("Answer only from the provided documents.\n\n")
	b.WriteString("DOMAIN CONTEXT:\n")
	b.WriteString("- AML = Anti-Money Laundering\n")
	b.WriteString("- CTF/CFT = Counter-Terrorism Financing\n")
	b.WriteString("- FATF = Financial Action Task Force\n")
	b.WriteString("- PEP = Politically Exposed Person\n")
	b.WriteString("- SAR = Suspicious Activity Report\n")
	b.WriteString("- KYC = Know Your Customer\n\n")

	b.WriteString("OUTPUT REQUIREMENTS:\n")
	b.WriteString(formatInstruction(profile))
	if profile.MinCitations > 0 {
		fmt.Fprintf(&b, "Cite sources inline using [Document N] or [Chunk N] labels; include at least %d citations to distinct sources.\n", profile.MinCitations)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", query)

	b.WriteString("DOCUMENT SUMMARIES:\n")
	if len(summaries) == 0 {
		b.WriteString("(none)\n")
	}
	for i, summary := range summaries {
		fmt.Fprintf(&b, "\n[Document %d] %s\n", i+1, sourceTitle(summary))
		writeSourceMetadata(&b, summary)
		b.WriteString(summary.Content)
		b.WriteString("\n")
	}

	b.WriteString("\nDETAILED CONTENT CHUNKS:\n")
	if len(chunks) == 0 {
		b.WriteString("(none)\n")
	}
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "\n[Chunk %d] %s", i+1, sourceTitle(chunk))
		if chunk.Anchor != "" {
			fmt.Fprintf(&b, " (%s)", chunk.Anchor)
		}
		b.WriteString("\n")
		b.WriteString(chunk.Content)
		b.WriteString("\n")
	}

	b.WriteString("\nAnswer the user question from the context above.\n")
	return b.String()
}

func formatInstruction(profile domain.FormatProfile) string {
	var structure string
	switch profile.Structure {
	case domain.StructureBulletPoints:
		structure = "Answer as a short list of bullet points."
	case domain.StructureSingleBlock:
		structure = "Answer in a single short paragraph suitable for a social media post."
	case domain.StructureSections:
		structure = "Organize the answer into titled sections."
	case domain.StructureNumberedSteps:
		structure = "Answer as a numbered sequence of steps."
	case domain.StructureHierarchical:
		structure = "Answer as a hierarchical outline with nested points."
	default:
		structure = "Answer in clear prose paragraphs."
	}
	return fmt.Sprintf("Produce a %s, %s response. %s\n", profile.Length, profile.Style, structure)
}

func sourceTitle(result domain.SearchResult) string {
	if result.Title != "" {
		return result.Title
	}
	if result.Filename != "" {
		return result.Filename
	}
	if result.SourceID != "" {
		return result.SourceID
	}
	return "Unknown"
}

func writeSourceMetadata(b *strings.Builder, result domain.SearchResult) {
	parts := make([]string, 0, 3)
	for _, key := range []string{"author", "organization", "date"} {
		if v := result.Metadata[key]; v != "" {
			parts = append(parts, key+": "+v)
		}
	}
	if len(parts) > 0 {
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}
}

// parseCitations extracts [Document N] / [Chunk N] markers from the answer
// and counts how many distinct sources they resolve to.
func parseCitations(answer string, summaries, chunks []domain.SearchResult) (markers []string, distinctSources int) {
	markers = make([]string, 0, 8)
	distinct := make(map[string]struct{})

	collect := func(pattern *regexp.Regexp, pool []domain.SearchResult, tier string) {
		for _, match := range pattern.FindAllStringSubmatch(answer, -1) {
			markers = append(markers, match[0])
			idx, err := strconv.Atoi(match[1])
			if err != nil || idx < 1 || idx > len(pool) {
				continue
			}
			source := pool[idx-1]
			key := source.SourceID
			if key == "" {
				key = tier + ":" + strconv.Itoa(idx)
			}
			distinct[key] = struct{}{}
		}
	}

	collect(documentLabelPattern, summaries, "summary")
	collect(chunkLabelPattern, chunks, "chunk")

	return markers, len(distinct)
}
