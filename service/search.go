package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/sqlite-vec/vector"

	"github.com/vaidya-ai/vaidya/embeddings"
)

func (r *SearchRequest) init() {
	if r.Mode == "" {
		r.Mode = SearchHybrid
	}
	if r.Limit <= 0 {
		r.Limit = 10
	}
	if r.VectorWeight <= 0 && r.KeywordWeight <= 0 {
		r.VectorWeight = 0.7
		r.KeywordWeight = 0.3
	}
}

// Search retrieves passages for a query. Hybrid mode fuses embedding
// similarity with full-text rank; vector and keyword modes use a single
// signal each.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if req.Corpus == "" || req.Query == "" {
		return nil, fmt.Errorf("corpus and query are required")
	}
	req.init()

	db, err := s.ensureDB(ctx, req.DBPath, false)
	if err != nil {
		return nil, err
	}
	conn, err := ensureSchemaConn(ctx, db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	switch req.Mode {
	case SearchKeyword:
		hits, err := keywordSearch(ctx, conn, req.Corpus, req.Query, req.Limit)
		if err != nil {
			return nil, err
		}
		for i := range hits {
			hits[i].Score = hits[i].KeywordScore
		}
		return applyMinScore(hits, req.MinScore), nil
	case SearchVector:
		emb, err := s.resolveEmbedder(req.Embedder)
		if err != nil {
			return nil, err
		}
		hits, err := vectorSearch(ctx, conn, req.Corpus, req.Query, emb, req.MinScore, req.Limit)
		if err != nil {
			return nil, err
		}
		for i := range hits {
			hits[i].VectorScore = hits[i].Score
		}
		return hits, nil
	case SearchHybrid:
		emb, err := s.resolveEmbedder(req.Embedder)
		if err != nil {
			return nil, err
		}
		// Over-fetch each signal so fusion has candidates beyond the cut line.
		fetch := req.Limit * 3
		vecHits, err := vectorSearch(ctx, conn, req.Corpus, req.Query, emb, 0, fetch)
		if err != nil {
			return nil, err
		}
		kwHits, err := keywordSearch(ctx, conn, req.Corpus, req.Query, fetch)
		if err != nil {
			return nil, err
		}
		fused := fuseResults(vecHits, kwHits, req.VectorWeight, req.KeywordWeight)
		fused = applyMinScore(fused, req.MinScore)
		if len(fused) > req.Limit {
			fused = fused[:req.Limit]
		}
		return fused, nil
	default:
		return nil, fmt.Errorf("unsupported search mode: %v", req.Mode)
	}
}

func vectorSearch(ctx context.Context, q sqlQueryer, corpusID, query string, emb embeddings.Embedder, minScore float64, limit int) ([]SearchResult, error) {
	qvec, err := emb.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	blob, err := vector.EncodeEmbedding(qvec)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `SELECT d.id, v.match_score, d.doc_id, d.section_id, d.title, d.content, d.meta
FROM passages v
JOIN _vec_passages d ON d.dataset_id = v.dataset_id AND d.id = v.passage_id
WHERE v.dataset_id = ?
  AND v.passage_id MATCH ?
  AND d.archived = 0
  AND v.match_score >= ?
ORDER BY v.match_score DESC
LIMIT ?`, corpusID, blob, minScore, limit)
	if err != nil && (strings.Contains(err.Error(), "no such module: vec") ||
		strings.Contains(err.Error(), "no such table: passages") ||
		strings.Contains(err.Error(), "unable to use function MATCH")) {
		return fallbackVectorSearch(ctx, q, corpusID, qvec, minScore, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResultRows(rows)
}

func keywordSearch(ctx context.Context, q sqlQueryer, corpusID, query string, limit int) ([]SearchResult, error) {
	match := ftsMatchExpr(query)
	if match == "" {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx, `SELECT d.id, -bm25(passage_fts), d.doc_id, d.section_id, d.title, d.content, d.meta
FROM passage_fts f
JOIN _vec_passages d ON d.dataset_id = f.corpus_id AND d.id = f.passage_id
WHERE passage_fts MATCH ?
  AND f.corpus_id = ?
  AND d.archived = 0
ORDER BY bm25(passage_fts)
LIMIT ?`, match, corpusID, limit)
	if err != nil && (strings.Contains(err.Error(), "no such module: fts5") ||
		isMissingTableErr(err, "passage_fts")) {
		return fallbackKeywordSearch(ctx, q, corpusID, query, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	hits, err := scanResultRows(rows)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].KeywordScore = hits[i].Score
	}
	return hits, nil
}

// fallbackKeywordSearch scans passages counting query term occurrences
// when the fts5 module is unavailable.
func fallbackKeywordSearch(ctx context.Context, q sqlQueryer, corpusID, query string, limit int) ([]SearchResult, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx, `SELECT id, doc_id, section_id, title, content, meta FROM _vec_passages WHERE dataset_id = ? AND archived = 0`, corpusID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []SearchResult
	for rows.Next() {
		var item SearchResult
		if err := rows.Scan(&item.ID, &item.DocID, &item.SectionID, &item.Title, &item.Content, &item.Meta); err != nil {
			return nil, err
		}
		haystack := strings.ToLower(item.Title + " " + item.Content)
		score := 0
		for _, term := range terms {
			score += strings.Count(haystack, term)
		}
		if score == 0 {
			continue
		}
		item.KeywordScore = float64(score)
		item.Score = item.KeywordScore
		item.Path = extractMetaPath(item.Meta)
		hits = append(hits, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// ftsMatchExpr builds an OR query of quoted terms so user punctuation
// never reaches the fts5 query parser.
func ftsMatchExpr(query string) string {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + strings.ReplaceAll(term, `"`, ``) + `"`
	}
	return strings.Join(quoted, " OR ")
}

func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 0x80)
	})
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "does": true, "for": true,
	"how": true, "in": true, "is": true, "it": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "to": true, "what": true,
	"when": true, "which": true, "with": true, "you": true,
}

func applyMinScore(hits []SearchResult, minScore float64) []SearchResult {
	if minScore <= 0 {
		return hits
	}
	out := hits[:0]
	for _, h := range hits {
		if h.Score >= minScore {
			out = append(out, h)
		}
	}
	return out
}
