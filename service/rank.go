package service

import "sort"

// fuseResults merges vector and keyword hits into one ranked list. Each
// signal is min-max normalized to [0,1] over its own candidate set, then
// combined as a weighted sum. Ties break on (doc_id, section_id) so the
// ordering is stable across runs.
func fuseResults(vecHits, kwHits []SearchResult, vecWeight, kwWeight float64) []SearchResult {
	total := vecWeight + kwWeight
	if total <= 0 {
		vecWeight, kwWeight, total = 0.7, 0.3, 1.0
	}
	vecWeight /= total
	kwWeight /= total

	vecNorm := normalizeScores(vecHits, func(r SearchResult) float64 { return r.Score })
	kwNorm := normalizeScores(kwHits, func(r SearchResult) float64 { return r.KeywordScore })

	merged := map[string]*SearchResult{}
	for i, h := range vecHits {
		item := h
		item.VectorScore = vecNorm[i]
		item.KeywordScore = 0
		merged[h.ID] = &item
	}
	for i, h := range kwHits {
		if existing, ok := merged[h.ID]; ok {
			existing.KeywordScore = kwNorm[i]
			continue
		}
		item := h
		item.VectorScore = 0
		item.KeywordScore = kwNorm[i]
		merged[h.ID] = &item
	}

	out := make([]SearchResult, 0, len(merged))
	for _, item := range merged {
		item.Score = vecWeight*item.VectorScore + kwWeight*item.KeywordScore
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DocID != out[j].DocID {
			return out[i].DocID < out[j].DocID
		}
		return out[i].SectionID < out[j].SectionID
	})
	return out
}

// normalizeScores maps raw scores to [0,1]. A single-candidate or
// constant-score set normalizes to 1 so the signal still contributes.
func normalizeScores(hits []SearchResult, score func(SearchResult) float64) []float64 {
	out := make([]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	min, max := score(hits[0]), score(hits[0])
	for _, h := range hits[1:] {
		v := score(h)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	for i, h := range hits {
		if span == 0 {
			out[i] = 1
			continue
		}
		out[i] = (score(h) - min) / span
	}
	return out
}
