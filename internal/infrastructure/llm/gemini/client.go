package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akosterin/docqa/internal/core/domain"
	"github.com/akosterin/docqa/internal/infrastructure/resilience"
)

// Client generates text through a Gemini-style generateContent REST API.
// Calls go through the circuit breaker with a single attempt each: recovery
// from generation failures is the caller's fallback model chain, never a
// transport-level retry.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string        `json:"role,omitempty"`
	Parts []contentPart `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// Generate implements ports.CompletionProvider.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int, model string) (string, error) {
	if model == "" {
		return "", domain.WrapErrorMessage(domain.ErrCompletionProvider, "generate", "model is required")
	}

	request := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []contentPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	var response generateResponse
	call := func(ctx context.Context) error {
		path := fmt.Sprintf("/v1beta/models/%s:generateContent", model)
		return c.postJSON(ctx, path, request, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.ExecuteOnce(ctx, "llm.generate", call, classifyCompletionError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapCompletionError("generate", err)
	}

	text := extractText(response)
	if text == "" {
		return "", domain.WrapErrorMessage(domain.ErrCompletionProvider, "generate", "empty completion response")
	}
	return text, nil
}

func extractText(response generateResponse) string {
	if len(response.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}
