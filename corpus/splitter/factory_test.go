package splitter

import (
	"testing"
)

func TestFactoryRoutesByExtension(t *testing.T) {
	f := NewFactory(4096)
	if _, ok := f.GetSplitter("doc.md", 100).(*MarkdownSplitter); !ok {
		t.Fatalf("expected markdown splitter for .md")
	}
	if _, ok := f.GetSplitter("DOC.MARKDOWN", 100).(*MarkdownSplitter); !ok {
		t.Fatalf("extension match should be case-insensitive")
	}
	if _, ok := f.GetSplitter("scan.pdf", 100).(ContentSplitter); !ok {
		t.Fatalf("pdf splitter should implement ContentSplitter")
	}
	if _, ok := f.GetSplitter("notes.txt", 100).(*SizeSplitter); !ok {
		t.Fatalf("expected size splitter for .txt")
	}
	if _, ok := f.GetSplitter("data.bin", 100).(*SizeSplitter); !ok {
		t.Fatalf("unknown extensions should use the default splitter")
	}
}

func TestFactoryLargeFilesUseSizeSplitter(t *testing.T) {
	f := NewFactory(4096)
	s := f.GetSplitter("huge.bin", 2*1024*1024)
	if _, ok := s.(*SizeSplitter); !ok {
		t.Fatalf("large files should use the size splitter")
	}
}

func TestFactoryRegisterExtensionSplitter(t *testing.T) {
	f := NewFactory(4096)
	custom := NewSizeSplitter(10)
	f.RegisterExtensionSplitter(".RST", custom)
	if got := f.GetSplitter("doc.rst", 100); got != custom {
		t.Fatalf("custom extension splitter not used")
	}
}

func TestPDFSplitterFallsBackToPrintableText(t *testing.T) {
	// Not a valid PDF; the splitter should strip non-printable bytes and
	// section what remains.
	data := append([]byte{0x00, 0x01}, []byte("readable text\nmore text\n")...)
	s := NewPDFSplitter(4096)
	cs, ok := s.(ContentSplitter)
	if !ok {
		t.Fatalf("pdf splitter should implement ContentSplitter")
	}
	sections, content := cs.SplitWithContent(data, nil)
	if string(content) != "readable text\nmore text\n" {
		t.Fatalf("unexpected extracted content: %q", content)
	}
	if len(sections) != 1 || sections[0].Kind != "pdf" {
		t.Fatalf("unexpected sections: %+v", sections)
	}
	if sections[0].End != len(content) {
		t.Fatalf("offsets should refer to extracted content")
	}
}
