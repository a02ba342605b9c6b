package splitter

import (
	"strings"
	"testing"
)

func TestMarkdownSplitterByHeadings(t *testing.T) {
	data := []byte("# Triphala\n\nIntro paragraph.\n\n## Uses\n\nDigestion and elimination.\n\n## Preparation\n\nEqual parts, powdered.\n")
	s := NewMarkdownSplitter(4096)
	sections := s.Split(data, nil)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if sections[0].Title != "Triphala" || sections[0].Slug != "triphala" {
		t.Fatalf("first section: %+v", sections[0])
	}
	// Sub-heading titles carry the heading trail.
	if sections[1].Title != "Triphala / Uses" {
		t.Fatalf("trail title = %q", sections[1].Title)
	}
	if sections[2].Slug != "preparation" {
		t.Fatalf("slug = %q", sections[2].Slug)
	}
	// Sections tile the document in order.
	if sections[0].Start != 0 {
		t.Fatalf("first section should start at 0, got %d", sections[0].Start)
	}
	for i := 1; i < len(sections); i++ {
		if sections[i].Start != sections[i-1].End {
			t.Fatalf("sections not contiguous at %d: %d != %d", i, sections[i].Start, sections[i-1].End)
		}
	}
	if sections[len(sections)-1].End != len(data) {
		t.Fatalf("last section should end at %d, got %d", len(data), sections[len(sections)-1].End)
	}
	// Section content starts at the heading line.
	if !strings.HasPrefix(string(data[sections[1].Start:sections[1].End]), "## Uses") {
		t.Fatalf("section should start at its heading line")
	}
}

func TestMarkdownSplitterPreamble(t *testing.T) {
	data := []byte("Preamble before any heading.\n\n# First\n\nBody.\n")
	sections := NewMarkdownSplitter(4096).Split(data, nil)
	if len(sections) != 2 {
		t.Fatalf("expected preamble + heading section, got %d", len(sections))
	}
	if sections[0].Slug != "" || sections[0].Title != "" {
		t.Fatalf("preamble should be anonymous: %+v", sections[0])
	}
}

func TestMarkdownSplitterNoHeadings(t *testing.T) {
	data := []byte("Just text without any markdown headings.\n")
	sections := NewMarkdownSplitter(4096).Split(data, nil)
	if len(sections) != 1 {
		t.Fatalf("expected single section, got %d", len(sections))
	}
	if sections[0].Start != 0 || sections[0].End != len(data) {
		t.Fatalf("section should cover the document: %+v", sections[0])
	}
}

func TestMarkdownSplitterOversizedSection(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Long\n")
	for i := 0; i < 40; i++ {
		b.WriteString(strings.Repeat("x", 20))
		b.WriteString("\n")
	}
	data := []byte(b.String())
	sections := NewMarkdownSplitter(200).Split(data, nil)
	if len(sections) < 2 {
		t.Fatalf("oversized section should split, got %d", len(sections))
	}
	seen := map[int]bool{}
	for _, s := range sections {
		if s.End-s.Start > 200 {
			t.Fatalf("section exceeds limit: %d bytes", s.End-s.Start)
		}
		if s.Slug != "long" {
			t.Fatalf("sub-sections should keep the heading slug, got %q", s.Slug)
		}
		if seen[s.Ordinal] {
			t.Fatalf("duplicate ordinal %d", s.Ordinal)
		}
		seen[s.Ordinal] = true
	}
}

func TestMarkdownSplitterEmpty(t *testing.T) {
	if got := NewMarkdownSplitter(4096).Split(nil, nil); len(got) != 0 {
		t.Fatalf("empty input should yield no sections, got %d", len(got))
	}
}
