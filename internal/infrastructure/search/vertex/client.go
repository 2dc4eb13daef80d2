package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akosterin/docqa/internal/core/domain"
	"github.com/akosterin/docqa/internal/infrastructure/resilience"
)

// Client queries a managed enterprise search backend with one serving config
// per tier: the chunk index holds passage-level content, the summary index
// holds per-document summaries. Both share the same request and response
// shape, only the serving config path differs.
type Client struct {
	baseURL            string
	apiKey             string
	chunkServingPath   string
	summaryServingPath string
	httpClient         *http.Client
	executor           *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, chunkServingPath, summaryServingPath string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:            strings.TrimRight(baseURL, "/"),
		apiKey:             apiKey,
		chunkServingPath:   strings.Trim(chunkServingPath, "/"),
		summaryServingPath: strings.Trim(summaryServingPath, "/"),
		httpClient:         &http.Client{Timeout: timeout},
		executor:           options.ResilienceExecutor,
	}
}

type searchRequest struct {
	Query    string `json:"query"`
	PageSize int    `json:"pageSize"`
	Filter   string `json:"filter,omitempty"`
}

type searchResponse struct {
	Results []struct {
		ID       string `json:"id"`
		Document struct {
			ID         string          `json:"id"`
			StructData json.RawMessage `json:"structData"`
		} `json:"document"`
		ModelScores map[string]struct {
			Values []float64 `json:"values"`
		} `json:"modelScores"`
	} `json:"results"`
}

type documentStructData struct {
	Content      string            `json:"content"`
	SourceID     string            `json:"source_id"`
	Filename     string            `json:"filename"`
	Title        string            `json:"title"`
	Anchor       string            `json:"anchor"`
	Organization string            `json:"organization"`
	Tags         []string          `json:"tags"`
	Metadata     map[string]string `json:"metadata"`
}

// Search implements ports.SearchProvider. A single attempt per call: the
// retriever treats a failed tier search as zero results, so transport-level
// retries would only delay that degradation.
func (c *Client) Search(ctx context.Context, tier domain.Tier, query string, maxResults int, filterExpression string) ([]domain.SearchResult, error) {
	servingPath, err := c.servingPath(tier)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	request := searchRequest{
		Query:    query,
		PageSize: maxResults,
		Filter:   filterExpression,
	}

	var response searchResponse
	call := func(ctx context.Context) error {
		return c.postSearch(ctx, servingPath, request, &response)
	}

	if c.executor != nil {
		err = c.executor.ExecuteOnce(ctx, "search."+string(tier), call, classifySearchError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapSearchError(string(tier), err)
	}

	return mapResults(tier, response), nil
}

func (c *Client) servingPath(tier domain.Tier) (string, error) {
	switch tier {
	case domain.TierChunk:
		return c.chunkServingPath, nil
	case domain.TierSummary:
		return c.summaryServingPath, nil
	default:
		return "", domain.WrapErrorMessage(domain.ErrSearchProvider, "search", fmt.Sprintf("unknown tier %q", tier))
	}
}

func (c *Client) postSearch(ctx context.Context, servingPath string, payload searchRequest, out *searchResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s:search", c.baseURL, servingPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  "search",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

func mapResults(tier domain.Tier, response searchResponse) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(response.Results))
	for rank, entry := range response.Results {
		var data documentStructData
		if len(entry.Document.StructData) > 0 {
			// Malformed struct data degrades to an empty-content result
			// rather than failing the whole tier.
			_ = json.Unmarshal(entry.Document.StructData, &data)
		}

		id := entry.Document.ID
		if id == "" {
			id = entry.ID
		}

		result := domain.SearchResult{
			ID:       id,
			Tier:     tier,
			Content:  data.Content,
			SourceID: data.SourceID,
			Filename: data.Filename,
			Title:    data.Title,
			Score:    relevanceScore(entry.ModelScores, rank, len(response.Results)),
			Anchor:   data.Anchor,
			Metadata: buildMetadata(data),
		}
		out = append(out, result)
	}
	return out
}

// relevanceScore prefers the backend's relevance model score and falls back
// to a rank-derived score so downstream ordering always has a signal.
func relevanceScore(scores map[string]struct {
	Values []float64 `json:"values"`
}, rank, total int) float64 {
	if entry, ok := scores["relevance_score"]; ok && len(entry.Values) > 0 {
		return entry.Values[0]
	}
	return float64(total-rank) / float64(total)
}

func buildMetadata(data documentStructData) map[string]string {
	meta := make(map[string]string, len(data.Metadata)+2)
	for k, v := range data.Metadata {
		meta[k] = v
	}
	if data.Organization != "" {
		meta["organization"] = data.Organization
	}
	if len(data.Tags) > 0 {
		meta["tags"] = strings.Join(data.Tags, ",")
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
