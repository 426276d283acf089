/**
 * Annotation types and insight categories for the Annotation Worker
 *
 * Each document gets one annotation row per enabled type; the type decides
 * which handler runs and how LLM response fragments are aggregated.
 */

package annotate

// Type identifies one derived annotation of a document
type Type string

const (
	TypeBlocks          Type = "blocks"
	TypeSpans           Type = "spans"
	TypePageText        Type = "page_text"
	TypeFullText        Type = "full_text"
	TypeQuestions       Type = "questions"
	TypeHeadings        Type = "headings"
	TypeSummary         Type = "summary"
	TypeTimeline        Type = "timeline"
	TypeCitedExamples   Type = "cited_examples"
	TypeCitations       Type = "citations"
	TypeTopics          Type = "topics"
	TypeInfoSnippets    Type = "info_snippets"
	TypeCustom          Type = "custom"
	TypeNER             Type = "ner"
	TypeChat            Type = "chat"
	TypeLegalInfo       Type = "legal_info"
	TypeEducationalInfo Type = "educational_info"
	TypeFinancialInfo   Type = "financial_info"
	TypeEditorialInfo   Type = "editorial_info"
)

// Category decides how chunk-level response fragments merge into the final
// annotation payload.
type Category string

const (
	// CategoryBusiness merges fragments into a name-keyed map with a
	// per-key validity filter
	CategoryBusiness Category = "business"
	// CategoryEssential flattens fragments into a single list
	CategoryEssential Category = "essential"
	// CategoryBasic covers direct exports with no LLM involvement
	CategoryBasic Category = "basic"
)

// ParseType maps a raw string to an annotation type, defaulting to blocks
func ParseType(value string) Type {
	switch Type(value) {
	case TypeBlocks, TypeSpans, TypePageText, TypeFullText, TypeQuestions,
		TypeHeadings, TypeSummary, TypeTimeline, TypeCitedExamples,
		TypeCitations, TypeTopics, TypeInfoSnippets, TypeCustom, TypeNER,
		TypeChat, TypeLegalInfo, TypeEducationalInfo, TypeFinancialInfo,
		TypeEditorialInfo:
		return Type(value)
	}
	return TypeBlocks
}

// CategoryOf returns the aggregation category of an annotation type
func CategoryOf(t Type) Category {
	switch t {
	case TypeLegalInfo, TypeFinancialInfo, TypeEditorialInfo, TypeEducationalInfo:
		return CategoryBusiness
	case TypeHeadings, TypeCitedExamples, TypeCitations, TypeTopics,
		TypeInfoSnippets, TypeNER, TypeSummary, TypeTimeline:
		return CategoryEssential
	}
	return CategoryBasic
}
