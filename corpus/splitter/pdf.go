package splitter

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/vaidya-ai/vaidya/corpus"
)

// pdfSplitter extracts plain text from PDF sources and delegates to a
// size-based splitter for sectioning.
type pdfSplitter struct {
	delegate Splitter
}

// NewPDFSplitter returns a Splitter that extracts printable text and delegates
// to a size-based splitter for sectioning.
func NewPDFSplitter(maxSection int) Splitter {
	if maxSection <= 0 {
		maxSection = 4096
	}
	return &pdfSplitter{delegate: NewSizeSplitter(maxSection)}
}

func (p *pdfSplitter) Split(data []byte, metadata map[string]interface{}) []*corpus.Section {
	sections, _ := p.SplitWithContent(data, metadata)
	return sections
}

func (p *pdfSplitter) SplitWithContent(data []byte, metadata map[string]interface{}) ([]*corpus.Section, []byte) {
	content := extractPDFText(data)
	sections := p.delegate.Split(content, metadata)
	for _, section := range sections {
		section.Kind = "pdf"
	}
	return sections, content
}

func extractPDFText(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	if r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		if reader, err := r.GetPlainText(); err == nil {
			if out, err := io.ReadAll(reader); err == nil && len(out) > 0 {
				return out
			}
		}
	}
	return extractPrintableText(data)
}

func extractPrintableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			b := in[0]
			if isPrintableASCII(b) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if isPrintableRune(r) {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}

func isPrintableASCII(b byte) bool {
	return b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127)
}

func isPrintableRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	if r >= 32 && r < 127 {
		return true
	}
	if r >= 127 && r <= 0x10FFFF {
		return true
	}
	return false
}
