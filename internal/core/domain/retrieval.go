package domain

type Tier string

const (
	TierChunk   Tier = "chunk"
	TierSummary Tier = "summary"
)

// SearchResult is one retrieved item from either tier. The provider assigns
// the initial score; fusion and reranking replace it in place.
type SearchResult struct {
	ID       string            `json:"id"`
	Tier     Tier              `json:"tier"`
	Content  string            `json:"content"`
	SourceID string            `json:"source_id"`
	Filename string            `json:"filename"`
	Title    string            `json:"title"`
	Score    float64           `json:"score"`
	Anchor   string            `json:"anchor,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AppliedOptimizations records which retrieval optimizations actually ran,
// so callers and tests can observe graceful degradation.
type AppliedOptimizations struct {
	QueryExpansion    bool   `json:"query_expansion"`
	ChunksReranked    bool   `json:"chunks_reranked"`
	SummariesReranked bool   `json:"summaries_reranked"`
	Deduplication     bool   `json:"deduplication"`
	FilterExpression  string `json:"filter_expression,omitempty"`
	FilterLogic       string `json:"filter_logic,omitempty"`
}

type RetrievalResult struct {
	Query           string               `json:"query"`
	ExpandedQueries []string             `json:"expanded_queries"`
	Chunks          []SearchResult       `json:"chunks"`
	Summaries       []SearchResult       `json:"summaries"`
	Applied         AppliedOptimizations `json:"optimizations_applied"`
}
