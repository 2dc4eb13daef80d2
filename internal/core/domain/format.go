package domain

type FormatType string

const (
	FormatBriefSummary          FormatType = "brief_summary"
	FormatSocialMedia           FormatType = "social_media"
	FormatBlogPost              FormatType = "blog_post"
	FormatNewsletter            FormatType = "newsletter"
	FormatOutline               FormatType = "outline"
	FormatProtocol              FormatType = "protocol"
	FormatReport                FormatType = "report"
	FormatComprehensiveAnalysis FormatType = "comprehensive_analysis"
	FormatFactualAnswer         FormatType = "factual_answer"
	FormatGeneralAnswer         FormatType = "general_answer"
)

type Structure string

const (
	StructureBulletPoints  Structure = "bullet_points"
	StructureParagraphs    Structure = "paragraphs"
	StructureSections      Structure = "sections"
	StructureNumberedSteps Structure = "numbered_steps"
	StructureHierarchical  Structure = "hierarchical"
	StructureSingleBlock   Structure = "single_paragraph"
)

// FormatProfile is the inferred desired shape of the generated answer.
// Detection always yields a profile; general_answer is the default.
type FormatProfile struct {
	Type         FormatType `json:"format_type"`
	Length       string     `json:"length"`
	Structure    Structure  `json:"structure"`
	Temperature  float64    `json:"temperature"`
	MaxTokens    int        `json:"max_tokens"`
	Style        string     `json:"style"`
	MinCitations int        `json:"min_citations"`
}
