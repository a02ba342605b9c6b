package service

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateRuneBoundary(t *testing.T) {
	s := strings.Repeat("त", 200)
	got := truncate(s, 400)
	if len(got) > 400 {
		t.Fatalf("truncate exceeded limit: %d bytes", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncate split a rune: %q", got[len(got)-3:])
	}
	if len(got) != 399 {
		t.Fatalf("expected 399 bytes after backing off a partial rune, got %d", len(got))
	}
	if truncate("short", 10) != "short" {
		t.Fatalf("strings within the limit should pass through")
	}
}

func TestBuildLedgerTruncatesOnRuneBoundary(t *testing.T) {
	hits := []SearchResult{
		{DocID: "a.md", SectionID: "a.md#1", Content: strings.Repeat("द", 60), Score: 0.9},
	}
	ledger := buildLedger(hits, 100)
	if len(ledger) != 1 {
		t.Fatalf("expected the first passage to be admitted, got %d", len(ledger))
	}
	if len(ledger[0].Text) > 100 {
		t.Fatalf("ledger text exceeds budget: %d bytes", len(ledger[0].Text))
	}
	if !utf8.ValidString(ledger[0].Text) {
		t.Fatalf("ledger text contains a split rune")
	}
}

func TestExtractiveAnswerValidUTF8(t *testing.T) {
	ledger := []Citation{{Ref: 1, Title: "रसायन", Text: strings.Repeat("द", 300)}}
	answer := extractiveAnswer(ledger, 3)
	if !utf8.ValidString(answer) {
		t.Fatalf("extractive answer contains a split rune")
	}
	if !strings.Contains(answer, "…") {
		t.Fatalf("long excerpt should be elided:\n%s", answer)
	}
}

func TestBuildLedgerTrimsToBudget(t *testing.T) {
	hits := []SearchResult{
		{DocID: "a.md", SectionID: "a.md#1", Content: strings.Repeat("x", 50), Score: 0.9},
		{DocID: "b.md", SectionID: "b.md#1", Content: strings.Repeat("y", 50), Score: 0.8},
		{DocID: "c.md", SectionID: "c.md#1", Content: strings.Repeat("z", 50), Score: 0.7},
	}
	ledger := buildLedger(hits, 110)
	if len(ledger) != 2 {
		t.Fatalf("expected 2 entries within budget, got %d", len(ledger))
	}
	if ledger[0].Ref != 1 || ledger[1].Ref != 2 {
		t.Fatalf("refs should number from 1: %d, %d", ledger[0].Ref, ledger[1].Ref)
	}
}

func TestBuildLedgerAdmitsOversizedFirstPassage(t *testing.T) {
	hits := []SearchResult{{DocID: "a.md", SectionID: "a.md#1", Content: strings.Repeat("x", 500)}}
	ledger := buildLedger(hits, 100)
	if len(ledger) != 1 {
		t.Fatalf("first passage should always be admitted, got %d entries", len(ledger))
	}
	if len(ledger[0].Text) != 100 {
		t.Fatalf("oversized passage should be truncated to budget, got %d chars", len(ledger[0].Text))
	}
}

func TestBuildLedgerSkipsEmptyContent(t *testing.T) {
	hits := []SearchResult{
		{DocID: "a.md", SectionID: "a.md#1", Content: "   "},
		{DocID: "b.md", SectionID: "b.md#1", Content: "usable text"},
	}
	ledger := buildLedger(hits, 0)
	if len(ledger) != 1 || ledger[0].DocID != "b.md" {
		t.Fatalf("blank passages should be skipped: %+v", ledger)
	}
}

func TestAssemblePrompt(t *testing.T) {
	ledger := []Citation{
		{Ref: 1, SectionID: "a.md#vata", Title: "Vata", Text: "Vata governs movement."},
		{Ref: 2, SectionID: "b.md#pitta", Text: "Pitta governs transformation."},
	}
	prompt := assemblePrompt("What does vata govern?", ledger)
	if !strings.Contains(prompt, "[1] a.md#vata (Vata)") {
		t.Fatalf("prompt missing titled source line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[2] b.md#pitta\n") {
		t.Fatalf("prompt missing untitled source line:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "Question: What does vata govern?\n") {
		t.Fatalf("prompt should end with the question:\n%s", prompt)
	}
}

func TestVerifyCitationsFiltersLedger(t *testing.T) {
	ledger := []Citation{
		{Ref: 1, DocID: "a.md"},
		{Ref: 2, DocID: "b.md"},
		{Ref: 3, DocID: "c.md"},
	}
	answer, used := verifyCitations("Vata governs movement [1] and speech [3].", ledger)
	if !strings.Contains(answer, "[1]") || !strings.Contains(answer, "[3]") {
		t.Fatalf("valid markers should be kept: %q", answer)
	}
	if len(used) != 2 || used[0].Ref != 1 || used[1].Ref != 3 {
		t.Fatalf("expected citations 1 and 3, got %+v", used)
	}
}

func TestVerifyCitationsStripsOutOfRangeMarkers(t *testing.T) {
	ledger := []Citation{{Ref: 1, DocID: "a.md"}}
	answer, used := verifyCitations("Claim [1] and invented claim [7].", ledger)
	if strings.Contains(answer, "[7]") {
		t.Fatalf("out-of-ledger marker should be stripped: %q", answer)
	}
	if len(used) != 1 || used[0].Ref != 1 {
		t.Fatalf("expected only citation 1, got %+v", used)
	}
}

func TestVerifyCitationsNoMarkersKeepsLedger(t *testing.T) {
	ledger := []Citation{{Ref: 1}, {Ref: 2}}
	answer, used := verifyCitations("An answer with no markers.", ledger)
	if answer != "An answer with no markers." {
		t.Fatalf("answer should be unchanged: %q", answer)
	}
	if len(used) != 2 {
		t.Fatalf("marker-free answer should keep the full ledger, got %d", len(used))
	}
}

func TestExtractiveAnswer(t *testing.T) {
	ledger := []Citation{
		{Ref: 1, Title: "Vata", Text: "Vata governs movement."},
		{Ref: 2, Text: "Pitta governs transformation."},
		{Ref: 3, Text: "Kapha governs structure."},
		{Ref: 4, Text: "Should not appear."},
	}
	answer := extractiveAnswer(ledger, 3)
	if !strings.Contains(answer, "Vata: Vata governs movement. [1]") {
		t.Fatalf("missing titled excerpt:\n%s", answer)
	}
	if !strings.Contains(answer, "[3]") || strings.Contains(answer, "[4]") {
		t.Fatalf("expected top 3 entries only:\n%s", answer)
	}
	long := []Citation{{Ref: 1, Text: strings.Repeat("a", 700)}}
	answer = extractiveAnswer(long, 1)
	if !strings.Contains(answer, "…") {
		t.Fatalf("long excerpt should be elided:\n%s", answer)
	}
}
