package corpus

import (
	"fmt"
	"strings"

	"github.com/vaidya-ai/vaidya/schema"
)

// Sections represents a collection of document sections
type Sections []*Section

// BySectionID returns a map of sections indexed by their section ID
func (s Sections) BySectionID(docID string) map[string]*Section {
	var result = make(map[string]*Section)
	for _, section := range s {
		result[section.ID(docID)] = section
	}
	return result
}

// Section represents a heading-delimited portion of a source document
type Section struct {
	Start    int               `json:"start"`
	End      int               `json:"end"`
	Ordinal  int               `json:"ordinal"`
	Slug     string            `json:"slug,omitempty"`
	Title    string            `json:"title,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Checksum int               `json:"checksum,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// ID returns a stable section identifier within a document. Sections that
// carry a heading slug use it; anonymous sections fall back to byte ranges.
func (s *Section) ID(docID string) string {
	if s.Slug != "" {
		return fmt.Sprintf("%s#%s-%d", docID, s.Slug, s.Ordinal)
	}
	return fmt.Sprintf("%s:%d-%d", docID, s.Start, s.End)
}

// NewPassage creates a schema.Passage from this section
func (s *Section) NewPassage(docID string, content []byte) schema.Passage {
	if s.Start >= len(content) {
		s.Start = 0
	}
	if s.End > len(content) {
		s.End = len(content)
	}
	text := ""
	if s.End > s.Start {
		text = string(content[s.Start:s.End])
	}
	metadata := map[string]interface{}{
		"start":   s.Start,
		"end":     s.End,
		"ordinal": s.Ordinal,
	}
	if s.Checksum != 0 {
		metadata["checksum"] = s.Checksum
	}
	if s.Kind != "" {
		metadata["kind"] = s.Kind
	}
	for k, v := range s.Meta {
		metadata[k] = v
	}
	return schema.Passage{
		DocID:     docID,
		SectionID: s.ID(docID),
		Title:     s.Title,
		Content:   text,
		Metadata:  metadata,
	}
}

// Slugify reduces a heading title to a lower-case identifier fragment.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
