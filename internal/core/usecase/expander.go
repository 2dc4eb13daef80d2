package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/akosterin/docqa/internal/core/domain"
	"github.com/akosterin/docqa/internal/core/ports"
)

const (
	expansionTemperature = 0.3
	expansionMaxTokens   = 200
	maxQueryVariations   = 3
)

// QueryExpander asks the completion provider for alternative phrasings of a
// query. Callers decide what to do with a failed expansion; the expander
// itself never silently swallows the error.
type QueryExpander struct {
	completion ports.CompletionProvider
	model      string
}

func NewQueryExpander(completion ports.CompletionProvider, model string) *QueryExpander {
	return &QueryExpander{completion: completion, model: model}
}

// Expand returns the original query followed by up to three generated
// variations. On provider or parse failure it returns the error; the caller
// is expected to fall back to the original query alone.
func (e *QueryExpander) Expand(ctx context.Context, query string) ([]string, error) {
	raw, err := e.completion.Generate(ctx, buildExpansionPrompt(query), expansionTemperature, expansionMaxTokens, e.model)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCompletionProvider, "expand query", err)
	}

	variations := parseQueryVariations(raw, query)
	if len(variations) == 0 {
		return nil, domain.WrapError(domain.ErrCompletionProvider, "expand query", fmt.Errorf("no usable variations in response"))
	}

	out := make([]string, 0, len(variations)+1)
	out = append(out, query)
	out = append(out, variations...)
	return out, nil
}

func buildExpansionPrompt(query string) string {
	return fmt.Sprintf(`Given this user query about terrorism financing, money laundering, or related compliance topics,
generate 2-3 alternative phrasings that would help retrieve relevant information.
Focus on:
- Expanding abbreviations (AML, CTF, FATF, etc.)
- Adding domain synonyms
- Rephrasing with domain terminology

Original query: %s

Return ONLY the alternative queries, one per line, without numbering or explanation.`, query)
}

func parseQueryVariations(raw, original string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, maxQueryVariations)
	for _, line := range lines {
		candidate := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if candidate == "" || strings.EqualFold(candidate, original) {
			continue
		}
		out = append(out, candidate)
		if len(out) == maxQueryVariations {
			break
		}
	}
	return out
}
