package splitter

import (
	"strings"
	"testing"
)

func TestSizeSplitterBounds(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString(strings.Repeat("a", 25))
		b.WriteString("\n")
	}
	data := []byte(b.String())
	sections := NewSizeSplitter(100).Split(data, nil)
	if len(sections) < 2 {
		t.Fatalf("expected multiple sections, got %d", len(sections))
	}
	for i, s := range sections {
		if s.End-s.Start > 100 {
			t.Fatalf("section %d exceeds limit: %d bytes", i, s.End-s.Start)
		}
		if i > 0 && s.Start != sections[i-1].End {
			t.Fatalf("sections not contiguous at %d", i)
		}
		if s.Ordinal != i {
			t.Fatalf("ordinal %d != %d", s.Ordinal, i)
		}
	}
	if sections[len(sections)-1].End != len(data) {
		t.Fatalf("sections should cover the document")
	}
	// Splits land on newline boundaries when one exists in the upper half.
	for i, s := range sections[:len(sections)-1] {
		if data[s.End-1] != '\n' {
			t.Fatalf("section %d should end after a newline", i)
		}
	}
}

func TestSizeSplitterSmallInput(t *testing.T) {
	data := []byte("short")
	sections := NewSizeSplitter(100).Split(data, nil)
	if len(sections) != 1 || sections[0].Start != 0 || sections[0].End != 5 {
		t.Fatalf("unexpected sections: %+v", sections)
	}
	if sections[0].Kind != "text" || sections[0].Checksum == 0 {
		t.Fatalf("section metadata missing: %+v", sections[0])
	}
	if got := NewSizeSplitter(100).Split(nil, nil); len(got) != 0 {
		t.Fatalf("empty input should yield no sections")
	}
}
