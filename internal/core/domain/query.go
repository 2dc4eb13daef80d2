package domain

type QueryType string

const (
	QueryFactual     QueryType = "factual"
	QueryExploratory QueryType = "exploratory"
	QueryComparative QueryType = "comparative"
	QueryProcedural  QueryType = "procedural"
	QueryAnalytical  QueryType = "analytical"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

type Scope string

const (
	ScopeNarrow Scope = "narrow"
	ScopeMedium Scope = "medium"
	ScopeBroad  Scope = "broad"
)

// FilterField is a logical metadata dimension extracted from query text.
// The filter builder maps it to the search index's schema field.
type FilterField string

const (
	FilterOrganization FilterField = "organization"
	FilterTopic        FilterField = "topic"
)

// FilterLogic selects how multiple filter predicates are combined.
type FilterLogic string

const (
	FilterLogicAND FilterLogic = "AND"
	FilterLogicOR  FilterLogic = "OR"
)

type FilterHint struct {
	Field FilterField `json:"field"`
	Value string      `json:"value"`
}

// QueryCharacteristics is the analyzer's full read of a query. It drives
// strategy selection, result sizing and metadata filtering downstream.
type QueryCharacteristics struct {
	Type           QueryType    `json:"type"`
	Complexity     Complexity   `json:"complexity"`
	Scope          Scope        `json:"scope"`
	NeedsChunks    bool         `json:"needs_chunks"`
	NeedsSummaries bool         `json:"needs_summaries"`
	FilterHints    []FilterHint `json:"filter_hints,omitempty"`
}

// ResultLimits is the adaptive per-tier result count for one query.
type ResultLimits struct {
	Chunks    int `json:"chunks"`
	Summaries int `json:"summaries"`
}
