package service

import "testing"

func TestFuseResultsMergesSignals(t *testing.T) {
	vecHits := []SearchResult{
		{ID: "a", DocID: "a.md", SectionID: "a.md#1", Score: 0.9},
		{ID: "b", DocID: "b.md", SectionID: "b.md#1", Score: 0.5},
	}
	kwHits := []SearchResult{
		{ID: "b", DocID: "b.md", SectionID: "b.md#1", KeywordScore: 12},
		{ID: "c", DocID: "c.md", SectionID: "c.md#1", KeywordScore: 4},
	}
	fused := fuseResults(vecHits, kwHits, 0.7, 0.3)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(fused))
	}
	byID := map[string]SearchResult{}
	for _, f := range fused {
		byID[f.ID] = f
	}
	// a: vector only, normalized to 1.0 -> 0.7; b: bottom vector + top keyword -> 0.3.
	if got := byID["a"].Score; got != 0.7 {
		t.Fatalf("expected a score 0.7, got %v", got)
	}
	if got := byID["b"].Score; got != 0.3 {
		t.Fatalf("expected b score 0.3, got %v", got)
	}
	if got := byID["c"].Score; got != 0 {
		t.Fatalf("expected c score 0, got %v", got)
	}
	if fused[0].ID != "a" {
		t.Fatalf("expected a first, got %q", fused[0].ID)
	}
}

func TestFuseResultsNormalizesWeights(t *testing.T) {
	vecHits := []SearchResult{{ID: "a", Score: 1}}
	fused := fuseResults(vecHits, nil, 7, 3)
	if len(fused) != 1 || fused[0].Score != 0.7 {
		t.Fatalf("expected weight normalization to 0.7, got %+v", fused)
	}
	fused = fuseResults(vecHits, nil, 0, 0)
	if len(fused) != 1 || fused[0].Score != 0.7 {
		t.Fatalf("expected default weights, got %+v", fused)
	}
}

func TestFuseResultsTieBreak(t *testing.T) {
	kwHits := []SearchResult{
		{ID: "y", DocID: "b.md", SectionID: "b.md#1", KeywordScore: 5},
		{ID: "x", DocID: "a.md", SectionID: "a.md#1", KeywordScore: 5},
	}
	fused := fuseResults(nil, kwHits, 0.7, 0.3)
	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
	if fused[0].DocID != "a.md" || fused[1].DocID != "b.md" {
		t.Fatalf("tie-break should order by doc_id: %q, %q", fused[0].DocID, fused[1].DocID)
	}
}

func TestNormalizeScoresConstantSet(t *testing.T) {
	hits := []SearchResult{{Score: 3}, {Score: 3}}
	norm := normalizeScores(hits, func(r SearchResult) float64 { return r.Score })
	if norm[0] != 1 || norm[1] != 1 {
		t.Fatalf("constant-score set should normalize to 1, got %v", norm)
	}
	if got := normalizeScores(nil, func(r SearchResult) float64 { return r.Score }); len(got) != 0 {
		t.Fatalf("empty set should yield empty slice")
	}
}
