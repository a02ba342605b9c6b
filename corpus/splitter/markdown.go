package splitter

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/vaidya-ai/vaidya/corpus"
)

// MarkdownSplitter splits markdown content on heading boundaries so each
// section carries the heading trail it belongs to. Oversized sections are
// further split by size while keeping their heading identity.
type MarkdownSplitter struct {
	maxSectionSize int
}

// NewMarkdownSplitter creates a new Markdown splitter
func NewMarkdownSplitter(maxSectionSize int) *MarkdownSplitter {
	if maxSectionSize <= 0 {
		maxSectionSize = 4096
	}
	return &MarkdownSplitter{
		maxSectionSize: maxSectionSize,
	}
}

type headingMark struct {
	offset int
	level  int
	title  string
}

// Split splits markdown content by headings
func (s *MarkdownSplitter) Split(data []byte, metadata map[string]interface{}) []*corpus.Section {
	sections := make([]*corpus.Section, 0)
	if len(data) == 0 {
		return sections
	}

	marks := findHeadings(data)
	if len(marks) == 0 {
		return s.sized(data, 0, len(data), "", "", 0)
	}

	ordinal := 0
	// Heading trail per level, joined for the section title.
	var trail []string
	emit := func(start, end int, title, slug string) {
		if end <= start {
			return
		}
		subs := s.sized(data, start, end, title, slug, ordinal)
		sections = append(sections, subs...)
		ordinal += len(subs)
	}

	if marks[0].offset > 0 {
		emit(0, marks[0].offset, "", "")
	}
	for i, mark := range marks {
		if mark.level <= len(trail) {
			trail = trail[:mark.level-1]
		}
		for len(trail) < mark.level-1 {
			trail = append(trail, "")
		}
		trail = append(trail, mark.title)
		end := len(data)
		if i+1 < len(marks) {
			end = marks[i+1].offset
		}
		emit(mark.offset, end, joinTrail(trail), corpus.Slugify(mark.title))
	}
	return sections
}

// sized emits one section for the range, or several size-bounded ones when
// the range exceeds the limit. All inherit the same title and slug.
func (s *MarkdownSplitter) sized(data []byte, start, end int, title, slug string, firstOrdinal int) []*corpus.Section {
	out := make([]*corpus.Section, 0)
	ordinal := firstOrdinal
	for i := start; i < end; {
		sectionEnd := i + s.maxSectionSize
		if sectionEnd > end {
			sectionEnd = end
		}
		if sectionEnd < end {
			for j := sectionEnd; j > i+s.maxSectionSize/2; j-- {
				if data[j] == '\n' {
					sectionEnd = j + 1
					break
				}
			}
		}
		out = append(out, &corpus.Section{
			Start:    i,
			End:      sectionEnd,
			Ordinal:  ordinal,
			Slug:     slug,
			Title:    title,
			Kind:     "markdown",
			Checksum: checksumOf(data[i:sectionEnd]),
		})
		ordinal++
		i = sectionEnd
	}
	return out
}

// findHeadings walks the goldmark AST and records heading line offsets.
func findHeadings(data []byte) []headingMark {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))
	var marks []headingMark
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		if h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		marks = append(marks, headingMark{
			offset: lineStart(data, seg.Start),
			level:  h.Level,
			title:  strings.TrimSpace(string(h.Text(data))),
		})
	}
	return marks
}

// lineStart backtracks from a byte offset to the start of its line. Goldmark
// heading segments begin after the '#' prefix.
func lineStart(data []byte, offset int) int {
	if offset > len(data) {
		offset = len(data)
	}
	for offset > 0 && data[offset-1] != '\n' {
		offset--
	}
	return offset
}

func joinTrail(trail []string) string {
	parts := make([]string, 0, len(trail))
	for _, t := range trail {
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " / ")
}
