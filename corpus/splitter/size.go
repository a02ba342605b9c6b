package splitter

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/vaidya-ai/vaidya/corpus"
)

// SizeSplitter implements content splitting based purely on size
type SizeSplitter struct {
	maxSectionSize int
}

// NewSizeSplitter creates a new SizeSplitter
func NewSizeSplitter(maxSectionSize int) *SizeSplitter {
	if maxSectionSize <= 0 {
		maxSectionSize = 1024
	}
	return &SizeSplitter{
		maxSectionSize: maxSectionSize,
	}
}

// Split splits content into size-bounded sections, preferring newline
// boundaries in the upper half of each window.
func (s *SizeSplitter) Split(data []byte, metadata map[string]interface{}) []*corpus.Section {
	sections := make([]*corpus.Section, 0)
	dataLen := len(data)
	if dataLen == 0 {
		return sections
	}

	ordinal := 0
	for start := 0; start < dataLen; {
		end := start + s.maxSectionSize
		if end > dataLen {
			end = dataLen
		}
		if end < dataLen {
			for j := end; j > start+s.maxSectionSize/2; j-- {
				if data[j] == '\n' {
					end = j + 1
					break
				}
			}
		}

		sections = append(sections, &corpus.Section{
			Start:    start,
			End:      end,
			Ordinal:  ordinal,
			Kind:     "text",
			Checksum: checksumOf(data[start:end]),
		})
		ordinal++
		start = end
	}
	return sections
}

func checksumOf(data []byte) int {
	sum := sha256.Sum256(data)
	return int(binary.BigEndian.Uint32(sum[:4]))
}
