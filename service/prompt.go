package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const askSystemPrompt = `You are a careful assistant answering questions about classical Ayurveda using ONLY the numbered source passages provided.
Rules:
- Answer only from the sources. If the sources do not cover the question, say so plainly.
- Cite every claim with the source number in square brackets, e.g. [1] or [2][3].
- Do not invent sources, page numbers or quotes.
- Keep the answer concise and factual. Do not give personalized medical advice.`

// buildLedger numbers retrieved passages and trims the combined context
// to maxChars. Passages are admitted in rank order; one passage is always
// admitted even when it alone exceeds the limit.
func buildLedger(hits []SearchResult, maxChars int) []Citation {
	if maxChars <= 0 {
		maxChars = 12000
	}
	var ledger []Citation
	used := 0
	for _, h := range hits {
		text := strings.TrimSpace(h.Content)
		if text == "" {
			continue
		}
		if len(ledger) > 0 && used+len(text) > maxChars {
			break
		}
		if len(text) > maxChars {
			text = truncate(text, maxChars)
		}
		ledger = append(ledger, Citation{
			Ref:       len(ledger) + 1,
			DocID:     h.DocID,
			SectionID: h.SectionID,
			Title:     h.Title,
			Text:      text,
			Score:     h.Score,
		})
		used += len(text)
	}
	return ledger
}

// assemblePrompt renders the numbered sources followed by the question.
func assemblePrompt(question string, ledger []Citation) string {
	var b strings.Builder
	b.WriteString("Sources:\n")
	for _, c := range ledger {
		fmt.Fprintf(&b, "[%d] %s", c.Ref, c.SectionID)
		if c.Title != "" {
			fmt.Fprintf(&b, " (%s)", c.Title)
		}
		b.WriteString("\n")
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n")
	return b.String()
}

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// verifyCitations strips markers that reference sources outside the
// ledger and returns the citations the answer actually uses. An answer
// with no markers keeps the full ledger so callers can still show
// provenance.
func verifyCitations(answer string, ledger []Citation) (string, []Citation) {
	byRef := map[int]Citation{}
	for _, c := range ledger {
		byRef[c.Ref] = c
	}
	referenced := map[int]bool{}
	cleaned := citationMarker.ReplaceAllStringFunc(answer, func(m string) string {
		n, err := strconv.Atoi(strings.Trim(m, "[]"))
		if err != nil {
			return m
		}
		if _, ok := byRef[n]; !ok {
			return ""
		}
		referenced[n] = true
		return m
	})
	cleaned = strings.TrimSpace(cleaned)
	if len(referenced) == 0 {
		return cleaned, ledger
	}
	var used []Citation
	for _, c := range ledger {
		if referenced[c.Ref] {
			used = append(used, c)
		}
	}
	return cleaned, used
}

// truncate shortens s to at most max bytes, backing up so a multi-byte
// rune is never split.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// extractiveAnswer composes an answer from the top ledger entries when no
// generator is configured.
func extractiveAnswer(ledger []Citation, maxEntries int) string {
	if maxEntries <= 0 {
		maxEntries = 3
	}
	var b strings.Builder
	b.WriteString("The most relevant passages in the corpus say:\n\n")
	for i, c := range ledger {
		if i >= maxEntries {
			break
		}
		excerpt := c.Text
		if len(excerpt) > 600 {
			excerpt = truncate(excerpt, 600) + "…"
		}
		if c.Title != "" {
			fmt.Fprintf(&b, "%s: %s [%d]\n\n", c.Title, excerpt, c.Ref)
		} else {
			fmt.Fprintf(&b, "%s [%d]\n\n", excerpt, c.Ref)
		}
	}
	return strings.TrimSpace(b.String())
}
