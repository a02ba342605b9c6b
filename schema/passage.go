package schema

// Passage represents a retrievable section of a corpus document with
// optional metadata and score. It mirrors the minimal shape used across
// this repository.
type Passage struct {
	DocID     string                 `json:"doc_id"`
	SectionID string                 `json:"section_id"`
	Title     string                 `json:"title,omitempty"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	// Score is optional and populated by retrieval.
	Score float64 `json:"score,omitempty"`
}
