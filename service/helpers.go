package service

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/viant/sqlite-vec/vector"

	"github.com/vaidya-ai/vaidya/corpus"
	"github.com/vaidya-ai/vaidya/corpus/splitter"
	"github.com/vaidya-ai/vaidya/embeddings"
	"github.com/vaidya-ai/vaidya/matching"
	"github.com/vaidya-ai/vaidya/matching/option"
	"github.com/vaidya-ai/vaidya/schema"
)

type sqlQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type fileItem struct {
	abs     string
	rel     string
	assetID string
	md5     string
	size    int64
	modTime time.Time
	data    []byte
}

type assetInfo struct {
	md5      string
	archived bool
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hashMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func listFiles(root string, matcher *matching.Manager) ([]fileItem, error) {
	var out []fileItem
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matcher != nil {
			size := info.Size()
			if size > int64(int(^uint(0)>>1)) {
				return nil
			}
			if matcher.IsExcluded(rel, int(size)) {
				return nil
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out = append(out, fileItem{
			abs:     path,
			rel:     rel,
			assetID: rel,
			md5:     hashMD5(data),
			size:    info.Size(),
			modTime: info.ModTime(),
			data:    data,
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

func newMatcher(spec CorpusSpec) *matching.Manager {
	var opts []option.Option
	opts = append(opts, option.WithDefaultExclusionPatterns())
	if len(spec.Include) > 0 {
		opts = append(opts, option.WithInclusionPatterns(spec.Include...))
	}
	if len(spec.Exclude) > 0 {
		opts = append(opts, option.WithExclusionPatterns(spec.Exclude...))
	}
	if spec.MaxSizeBytes > 0 {
		if spec.MaxSizeBytes > int64(int(^uint(0)>>1)) {
			spec.MaxSizeBytes = int64(int(^uint(0) >> 1))
		}
		opts = append(opts, option.WithMaxIngestableSize(int(spec.MaxSizeBytes)))
	}
	return matching.New(opts...)
}

// splitFile sections a source document and materializes passages.
func splitFile(relPath string, data []byte, factory *splitter.Factory) ([]schema.Passage, error) {
	s := factory.GetSplitter(relPath, len(data))
	content := data
	var sections []*corpus.Section
	if cs, ok := s.(splitter.ContentSplitter); ok {
		sections, content = cs.SplitWithContent(data, map[string]interface{}{"path": relPath})
	} else {
		sections = s.Split(data, map[string]interface{}{"path": relPath})
	}
	if content == nil {
		content = data
	}
	passages := make([]schema.Passage, 0, len(sections))
	for _, section := range sections {
		passages = append(passages, section.NewPassage(relPath, content))
	}
	return passages, nil
}

func ensureSchema(ctx context.Context, q sqlQueryer) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS corpus (
			corpus_id TEXT PRIMARY KEY,
			source_uri TEXT,
			description TEXT,
			last_indexed_at DATETIME,
			last_scn INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS corpus_scn (
			corpus_id TEXT PRIMARY KEY,
			next_scn INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS corpus_asset (
			corpus_id TEXT NOT NULL,
			asset_id TEXT NOT NULL,
			path TEXT NOT NULL,
			md5 TEXT NOT NULL,
			size INTEGER NOT NULL,
			mod_time DATETIME NOT NULL,
			scn INTEGER NOT NULL,
			archived INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(corpus_id, asset_id)
		);`,
		// dataset_id/id/embedding/archived follow the vec module shadow-table contract.
		`CREATE TABLE IF NOT EXISTS _vec_passages (
			dataset_id TEXT NOT NULL,
			id TEXT NOT NULL,
			asset_id TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			section_id TEXT NOT NULL,
			title TEXT,
			content TEXT,
			meta TEXT,
			embedding BLOB,
			embedding_model TEXT,
			scn INTEGER NOT NULL,
			archived INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(dataset_id, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_passages_asset ON _vec_passages(dataset_id, asset_id);`,
		`CREATE INDEX IF NOT EXISTS idx_passages_scn ON _vec_passages(dataset_id, scn);`,
		`CREATE TABLE IF NOT EXISTS draft_job (
			id TEXT PRIMARY KEY,
			corpus_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			status TEXT NOT NULL,
			stage TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS draft_stage (
			job_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			seq INTEGER NOT NULL,
			status TEXT NOT NULL,
			output TEXT,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY(job_id, stage)
		);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS passages USING vec(passage_id);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS passage_fts USING fts5(content, title, corpus_id UNINDEXED, passage_id UNINDEXED);`,
	}
	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(stmt, "VIRTUAL TABLE") &&
				(strings.Contains(err.Error(), "no such module: vec") ||
					strings.Contains(err.Error(), "no such module: fts5")) {
				continue
			}
			return err
		}
	}
	return nil
}

func ensureCorpus(ctx context.Context, q sqlQueryer, corpusID, sourcePath string) error {
	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO corpus(corpus_id, description, source_uri, last_scn) VALUES(?,?,?,0)`, corpusID, corpusID, sourcePath); err != nil {
		return err
	}
	return nil
}

func loadAssets(ctx context.Context, q sqlQueryer, corpusID string) (map[string]assetInfo, error) {
	rows, err := q.QueryContext(ctx, `SELECT asset_id, md5, archived FROM corpus_asset WHERE corpus_id = ?`, corpusID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	assets := map[string]assetInfo{}
	for rows.Next() {
		var id string
		var md5hex string
		var archived int
		if err := rows.Scan(&id, &md5hex, &archived); err != nil {
			return nil, err
		}
		assets[id] = assetInfo{md5: md5hex, archived: archived != 0}
	}
	return assets, rows.Err()
}

func nextSCN(ctx context.Context, q sqlQueryer, corpusID string) (uint64, error) {
	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO corpus_scn(corpus_id, next_scn) VALUES(?, 0)`, corpusID); err != nil {
		return 0, err
	}
	if _, err := q.ExecContext(ctx, `UPDATE corpus_scn SET next_scn = next_scn + 1 WHERE corpus_id = ?`, corpusID); err != nil {
		return 0, err
	}
	var scn uint64
	if err := q.QueryRowContext(ctx, `SELECT next_scn FROM corpus_scn WHERE corpus_id = ?`, corpusID).Scan(&scn); err != nil {
		return 0, err
	}
	if _, err := q.ExecContext(ctx, `UPDATE corpus SET last_scn = CASE WHEN last_scn < ? THEN ? ELSE last_scn END, last_indexed_at = CURRENT_TIMESTAMP WHERE corpus_id = ?`, scn, scn, corpusID); err != nil {
		return 0, err
	}
	return scn, nil
}

func upsertAsset(ctx context.Context, q sqlQueryer, corpusID string, f fileItem, scn uint64) error {
	_, err := q.ExecContext(ctx, `INSERT INTO corpus_asset(corpus_id, asset_id, path, md5, size, mod_time, scn, archived)
VALUES(?,?,?,?,?,?,?,0)
ON CONFLICT(corpus_id, asset_id) DO UPDATE SET
	path=excluded.path,
	md5=excluded.md5,
	size=excluded.size,
	mod_time=excluded.mod_time,
	scn=excluded.scn,
	archived=0`,
		corpusID, f.assetID, f.rel, f.md5, f.size, f.modTime, scn,
	)
	return err
}

// ftsExec runs FTS maintenance tolerating builds without the fts5 module.
func ftsExec(ctx context.Context, q sqlQueryer, query string, args ...any) error {
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "no such module: fts5") || isMissingTableErr(err, "passage_fts") {
			return nil
		}
		return err
	}
	return nil
}

func upsertPassages(ctx context.Context, q sqlQueryer, corpusID, assetID string, passages []schema.Passage, emb embeddings.Embedder, batchSize int, scn uint64, md5hex, relPath, model string) (int, error) {
	if err := ftsExec(ctx, q, `DELETE FROM passage_fts WHERE corpus_id = ? AND passage_id IN (
SELECT id FROM _vec_passages WHERE dataset_id = ? AND asset_id = ?)`, corpusID, corpusID, assetID); err != nil {
		return 0, err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM _vec_passages WHERE dataset_id = ? AND asset_id = ?`, corpusID, assetID); err != nil {
		return 0, err
	}
	if len(passages) == 0 {
		return 0, nil
	}
	vectors, tokens, err := embedPassages(ctx, emb, passages, batchSize)
	if err != nil {
		return 0, err
	}
	stmt, err := q.PrepareContext(ctx, `INSERT INTO _vec_passages(dataset_id, id, asset_id, doc_id, section_id, title, content, meta, embedding, embedding_model, scn, archived)
VALUES(?,?,?,?,?,?,?,?,?,?,?,0)
ON CONFLICT(dataset_id, id) DO UPDATE SET
	asset_id=excluded.asset_id,
	doc_id=excluded.doc_id,
	section_id=excluded.section_id,
	title=excluded.title,
	content=excluded.content,
	meta=excluded.meta,
	embedding=excluded.embedding,
	embedding_model=excluded.embedding_model,
	scn=excluded.scn,
	archived=0`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, passage := range passages {
		metaJSON, err := decorateMeta(passage.Metadata, corpusID, assetID, relPath, md5hex)
		if err != nil {
			return 0, err
		}
		blob, err := vector.EncodeEmbedding(vectors[i])
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, corpusID, passage.SectionID, assetID, passage.DocID, passage.SectionID, passage.Title, passage.Content, metaJSON, blob, model, scn); err != nil {
			return 0, err
		}
		if err := ftsExec(ctx, q, `INSERT INTO passage_fts(content, title, corpus_id, passage_id) VALUES(?,?,?,?)`,
			passage.Content, passage.Title, corpusID, passage.SectionID); err != nil {
			return 0, err
		}
	}
	return tokens, nil
}

type usageEmbedder interface {
	EmbedDocumentsWithUsage(ctx context.Context, docs []string) ([][]float32, int, error)
}

func embedPassages(ctx context.Context, emb embeddings.Embedder, passages []schema.Passage, batchSize int) ([][]float32, int, error) {
	if batchSize <= 0 {
		batchSize = 64
	}
	out := make([][]float32, 0, len(passages))
	totalTokens := 0
	for i := 0; i < len(passages); i += batchSize {
		end := i + batchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[i:end]
		texts := make([]string, len(batch))
		for j := range batch {
			texts[j] = batch[j].Content
		}
		var (
			vecs   [][]float32
			tokens int
			err    error
		)
		if ue, ok := emb.(usageEmbedder); ok {
			vecs, tokens, err = ue.EmbedDocumentsWithUsage(ctx, texts)
			totalTokens += tokens
		} else {
			vecs, err = emb.EmbedDocuments(ctx, texts)
		}
		if err != nil {
			return nil, 0, err
		}
		if len(vecs) != len(texts) {
			return nil, 0, fmt.Errorf("embedder returned %d vectors for %d passages", len(vecs), len(texts))
		}
		out = append(out, vecs...)
	}
	return out, totalTokens, nil
}

func decorateMeta(metaIn map[string]interface{}, corpusID, assetID, relPath, md5hex string) (string, error) {
	metaOut := map[string]interface{}{}
	for k, v := range metaIn {
		metaOut[k] = v
	}
	metaOut["corpus_id"] = corpusID
	metaOut["asset_id"] = assetID
	metaOut["path"] = relPath
	metaOut["md5"] = md5hex
	data, err := json.Marshal(metaOut)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extractMetaPath(metaStr string) string {
	if metaStr == "" {
		return ""
	}
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(metaStr), &meta); err != nil {
		return ""
	}
	if v, ok := meta["path"].(string); ok {
		return v
	}
	return ""
}

func archiveAsset(ctx context.Context, q sqlQueryer, corpusID, assetID string, scn uint64) error {
	if err := ftsExec(ctx, q, `DELETE FROM passage_fts WHERE corpus_id = ? AND passage_id IN (
SELECT id FROM _vec_passages WHERE dataset_id = ? AND asset_id = ?)`, corpusID, corpusID, assetID); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `UPDATE corpus_asset SET archived=1, scn=? WHERE corpus_id=? AND asset_id=?`, scn, corpusID, assetID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `UPDATE _vec_passages SET archived=1, scn=? WHERE dataset_id=? AND asset_id=?`, scn, corpusID, assetID)
	return err
}

func pruneArchived(ctx context.Context, q sqlQueryer, corpusID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM _vec_passages WHERE dataset_id=? AND archived=1`, corpusID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `DELETE FROM corpus_asset WHERE corpus_id=? AND archived=1`, corpusID)
	return err
}

func checkIntegrity(ctx context.Context, q sqlQueryer, corpusID string) (*IntegrityStats, error) {
	var stats IntegrityStats
	stats.CorpusID = corpusID
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN archived=1 THEN 1 ELSE 0 END),0), COALESCE(SUM(CASE WHEN archived=0 THEN 1 ELSE 0 END),0)
FROM _vec_passages WHERE dataset_id = ?`, corpusID).Scan(&stats.Passages, &stats.PassagesArchived, &stats.PassagesActive); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN archived=1 THEN 1 ELSE 0 END),0), COALESCE(SUM(CASE WHEN archived=0 THEN 1 ELSE 0 END),0)
FROM corpus_asset WHERE corpus_id = ?`, corpusID).Scan(&stats.Assets, &stats.AssetsArchived, &stats.AssetsActive); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM _vec_passages d LEFT JOIN corpus_asset a
ON a.corpus_id = d.dataset_id AND a.asset_id = d.asset_id
WHERE d.dataset_id = ? AND a.asset_id IS NULL`, corpusID).Scan(&stats.OrphanPassages); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_asset a LEFT JOIN _vec_passages d
ON d.dataset_id = a.corpus_id AND d.asset_id = a.asset_id
WHERE a.corpus_id = ? AND d.id IS NULL`, corpusID).Scan(&stats.OrphanAssets); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM _vec_passages WHERE dataset_id = ? AND embedding IS NULL`, corpusID).Scan(&stats.MissingEmbeddings); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM _vec_passages d WHERE d.dataset_id = ? AND d.archived = 0
AND NOT EXISTS (SELECT 1 FROM passage_fts f WHERE f.corpus_id = d.dataset_id AND f.passage_id = d.id)`, corpusID).Scan(&stats.MissingFTS); err != nil {
		if strings.Contains(err.Error(), "no such module: fts5") || isMissingTableErr(err, "passage_fts") {
			stats.MissingFTS = 0
		} else {
			return nil, err
		}
	}
	return &stats, nil
}

func scanResultRows(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var item SearchResult
		if err := rows.Scan(&item.ID, &item.Score, &item.DocID, &item.SectionID, &item.Title, &item.Content, &item.Meta); err != nil {
			return nil, err
		}
		item.Path = extractMetaPath(item.Meta)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func fallbackVectorSearch(ctx context.Context, q sqlQueryer, corpusID string, qvec []float32, minScore float64, limit int) ([]SearchResult, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, doc_id, section_id, title, content, meta, embedding FROM _vec_passages WHERE dataset_id = ? AND archived = 0`, corpusID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []SearchResult
	for rows.Next() {
		var item SearchResult
		var emb []byte
		if err := rows.Scan(&item.ID, &item.DocID, &item.SectionID, &item.Title, &item.Content, &item.Meta, &emb); err != nil {
			return nil, err
		}
		vecs, err := vector.DecodeEmbedding(emb)
		if err != nil {
			continue
		}
		sim := float64(cosine(qvec, vecs))
		if sim < minScore {
			continue
		}
		item.Score = sim
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

func isMissingTableErr(err error, table string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") && strings.Contains(msg, strings.ToLower(table))
}

func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / float32(math.Sqrt(float64(na))*math.Sqrt(float64(nb)))
}
