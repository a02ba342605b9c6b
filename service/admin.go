package service

import (
	"context"
	"fmt"
	"strings"
)

// Admin performs maintenance tasks against the passage store.
func (s *Service) Admin(ctx context.Context, req AdminRequest) ([]AdminResult, error) {
	if len(req.Corpora) == 0 {
		return nil, fmt.Errorf("no corpora specified")
	}
	if req.Action == "" {
		req.Action = "check"
	}
	if req.Logf == nil {
		req.Logf = func(string, ...any) {}
	}
	db, err := s.ensureDB(ctx, req.DBPath, true)
	if err != nil {
		return nil, err
	}
	conn, err := ensureSchemaConn(ctx, db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if req.Action == "rebuild" {
		if _, err := conn.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS vec_admin USING vec_admin(op)`); err != nil &&
			!strings.Contains(err.Error(), "no such module: vec_admin") {
			return nil, err
		}
	}

	var results []AdminResult
	for _, spec := range req.Corpora {
		switch req.Action {
		case "check":
			stats, err := checkIntegrity(ctx, conn, spec.Name)
			if err != nil {
				return nil, err
			}
			results = append(results, AdminResult{Corpus: spec.Name, Action: req.Action, Stats: stats})
		case "prune":
			if err := pruneArchived(ctx, conn, spec.Name); err != nil {
				return nil, err
			}
			results = append(results, AdminResult{Corpus: spec.Name, Action: req.Action, Details: "archived rows removed"})
		case "rebuild":
			q := fmt.Sprintf("main._vec_passages:%s", spec.Name)
			var op string
			if err := conn.QueryRowContext(ctx, `SELECT op FROM vec_admin WHERE op MATCH ?`, q).Scan(&op); err != nil {
				if strings.Contains(err.Error(), "xBestIndex malfunction") || strings.Contains(err.Error(), "no such module: vec_admin") ||
					isMissingTableErr(err, "vec_admin") {
					results = append(results, AdminResult{Corpus: spec.Name, Action: req.Action, Details: "skipped (vec_admin unavailable)"})
					continue
				}
				return nil, err
			}
			results = append(results, AdminResult{Corpus: spec.Name, Action: req.Action, Details: op})
		case "rebuild-fts":
			n, err := rebuildFTS(ctx, conn, spec.Name)
			if err != nil {
				return nil, err
			}
			results = append(results, AdminResult{Corpus: spec.Name, Action: req.Action, Details: fmt.Sprintf("rows=%d", n)})
		default:
			return nil, fmt.Errorf("unknown action: %s", req.Action)
		}
		req.Logf("admin %v on corpus %v done", req.Action, spec.Name)
	}
	return results, nil
}

// rebuildFTS repopulates the full-text index from active passages.
func rebuildFTS(ctx context.Context, q sqlQueryer, corpusID string) (int64, error) {
	if err := ftsExec(ctx, q, `DELETE FROM passage_fts WHERE corpus_id = ?`, corpusID); err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `INSERT INTO passage_fts(content, title, corpus_id, passage_id)
SELECT content, title, dataset_id, id FROM _vec_passages WHERE dataset_id = ? AND archived = 0`, corpusID)
	if err != nil {
		if strings.Contains(err.Error(), "no such module: fts5") || isMissingTableErr(err, "passage_fts") {
			return 0, fmt.Errorf("fts5 module unavailable")
		}
		return 0, err
	}
	return res.RowsAffected()
}
