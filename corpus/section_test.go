package corpus

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Triphala", "triphala"},
		{"  Uses & Preparation  ", "uses-preparation"},
		{"Vata / Pitta / Kapha", "vata-pitta-kapha"},
		{"3 Fruits!", "3-fruits"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSectionID(t *testing.T) {
	withSlug := &Section{Slug: "uses", Ordinal: 2}
	if got := withSlug.ID("doc.md"); got != "doc.md#uses-2" {
		t.Fatalf("slugged ID = %q", got)
	}
	anonymous := &Section{Start: 10, End: 40}
	if got := anonymous.ID("doc.md"); got != "doc.md:10-40" {
		t.Fatalf("anonymous ID = %q", got)
	}
}

func TestNewPassageClampsRange(t *testing.T) {
	content := []byte("0123456789")
	s := &Section{Start: 2, End: 100, Ordinal: 1, Kind: "text", Meta: map[string]string{"page": "3"}}
	p := s.NewPassage("doc.txt", content)
	if p.Content != "23456789" {
		t.Fatalf("content = %q", p.Content)
	}
	if p.DocID != "doc.txt" || p.SectionID != "doc.txt:2-10" {
		t.Fatalf("ids = %q %q", p.DocID, p.SectionID)
	}
	if p.Metadata["kind"] != "text" || p.Metadata["page"] != "3" {
		t.Fatalf("metadata = %+v", p.Metadata)
	}

	out := &Section{Start: 50, End: 60}
	p = out.NewPassage("doc.txt", content)
	if p.Content != "0123456789" {
		t.Fatalf("out-of-range start should reset to 0, got %q", p.Content)
	}
}
