package splitter

import (
	"github.com/vaidya-ai/vaidya/corpus"
)

// Splitter defines the interface for content splitting strategies
type Splitter interface {
	// Split divides content into logical sections
	Split(data []byte, metadata map[string]interface{}) []*corpus.Section
}

// ContentSplitter is implemented by splitters that transform the raw bytes
// before splitting (e.g. PDF text extraction). Section offsets refer to the
// returned content, not the original data.
type ContentSplitter interface {
	Splitter
	SplitWithContent(data []byte, metadata map[string]interface{}) ([]*corpus.Section, []byte)
}
