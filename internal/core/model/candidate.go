package model

// SourceKind tags which content table a candidate came from.
type SourceKind string

const (
	SourceTemplate SourceKind = "template"
	SourceSection  SourceKind = "section"
	SourceFAQ      SourceKind = "faq"
)

// ContextCandidate is one retrievable unit of business-authored content,
// produced fresh per query and never persisted.
type ContextCandidate struct {
	ID              string         `json:"id"`
	SourceKind      SourceKind     `json:"source_kind"`
	SectionKey      string         `json:"section_key,omitempty"`
	DisplayName     string         `json:"display_name"`
	Content         string         `json:"content"`
	SimilarityScore float64        `json:"similarity_score"`
	SourceMetadata  SourceMetadata `json:"source_metadata"`
}

// SourceMetadata carries accounting fields needed by later scoring steps.
type SourceMetadata struct {
	WordCount  int    `json:"word_count"`
	CharCount  int    `json:"char_count"`
	UsageCount int64  `json:"usage_count"`
	Language   string `json:"language,omitempty"`
}
