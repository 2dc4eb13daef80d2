package domain

// SynthesisResult is the final output of the pipeline.
type SynthesisResult struct {
	Query             string         `json:"query"`
	Answer            string         `json:"answer"`
	Sources           []SearchResult `json:"sources"`
	ExplicitCitations []string       `json:"explicit_citations"`
	DistinctCitations int            `json:"distinct_citations"`
	// CitationShortfall marks answers citing fewer distinct sources than the
	// format profile requires. A quality signal, not a failure.
	CitationShortfall bool          `json:"citation_shortfall"`
	ModelUsed         string        `json:"model_used"`
	Format            FormatProfile `json:"format_info"`
	TemperatureUsed   float64       `json:"temperature_used"`
	NoContext         bool          `json:"no_context"`
}

// CompletionUsage is one recorded completion-provider call.
type CompletionUsage struct {
	Operation    string
	Model        string
	LatencyMS    float64
	PromptTokens int
	OutputTokens int
	ErrorMessage string
}

// AnswerRecord is the audit row persisted per answered query.
type AnswerRecord struct {
	Query             string
	QueryType         QueryType
	FormatType        FormatType
	ModelUsed         string
	SourceCount       int
	DistinctCitations int
	CitationShortfall bool
	NoContext         bool
	DurationMS        float64
}

// AnswerEvent is published to the message bus after each answered query.
type AnswerEvent struct {
	Query             string     `json:"query"`
	QueryType         QueryType  `json:"query_type"`
	FormatType        FormatType `json:"format_type"`
	ModelUsed         string     `json:"model_used"`
	SourceCount       int        `json:"source_count"`
	CitationShortfall bool       `json:"citation_shortfall"`
	NoContext         bool       `json:"no_context"`
}
