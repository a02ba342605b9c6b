package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ParseCSV splits comma-separated patterns into a slice.
func ParseCSV(s string) []string {
	return splitCSV(s)
}

// ResolveCorpora resolves corpus specs from flags or config.
func ResolveCorpora(req ResolveCorporaRequest) ([]CorpusSpec, string, error) {
	if req.All && req.ConfigPath == "" {
		return nil, "", fmt.Errorf("--all requires --config or ~/vaidya/config.yaml")
	}
	if req.ConfigPath != "" {
		cfg, err := LoadConfig(req.ConfigPath)
		if err != nil {
			return nil, "", err
		}
		if req.All {
			var out []CorpusSpec
			for name, c := range cfg.Corpora {
				if strings.TrimSpace(name) == "" || strings.TrimSpace(c.Path) == "" {
					continue
				}
				out = append(out, CorpusSpec{Name: name, Path: c.Path, Include: c.Include, Exclude: c.Exclude, MaxSizeBytes: c.MaxSizeBytes})
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
			if len(out) == 0 {
				return nil, "", fmt.Errorf("config has no corpora")
			}
			return out, cfg.Store.DSN, nil
		}
		if req.Corpus == "" {
			return nil, "", fmt.Errorf("corpus is required without --all")
		}
		c, ok := cfg.Corpora[req.Corpus]
		if !ok || strings.TrimSpace(c.Path) == "" {
			return nil, "", fmt.Errorf("corpus %q not found in config", req.Corpus)
		}
		return []CorpusSpec{{Name: req.Corpus, Path: c.Path, Include: c.Include, Exclude: c.Exclude, MaxSizeBytes: c.MaxSizeBytes}}, cfg.Store.DSN, nil
	}
	if req.Corpus == "" {
		return nil, "", fmt.Errorf("corpus is required")
	}
	if req.RequirePath && strings.TrimSpace(req.CorpusPath) == "" {
		return nil, "", fmt.Errorf("path is required")
	}
	spec := CorpusSpec{Name: req.Corpus, Path: req.CorpusPath}
	if len(req.Include) > 0 {
		spec.Include = req.Include
	}
	if len(req.Exclude) > 0 {
		spec.Exclude = req.Exclude
	}
	if req.MaxSizeBytes > 0 {
		spec.MaxSizeBytes = req.MaxSizeBytes
	}
	return []CorpusSpec{spec}, "", nil
}

// Corpora returns summary metadata for indexed corpora.
func (s *Service) Corpora(ctx context.Context, req CorporaRequest) ([]CorpusInfo, error) {
	db, err := s.ensureDB(ctx, req.DBPath, false)
	if err != nil {
		return nil, err
	}
	conn, err := ensureSchemaConn(ctx, db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := `SELECT c.corpus_id, c.source_uri, c.last_scn, c.last_indexed_at,
    (SELECT COUNT(*) FROM corpus_asset a WHERE a.corpus_id = c.corpus_id) AS assets,
    (SELECT COUNT(*) FROM corpus_asset a WHERE a.corpus_id = c.corpus_id AND a.archived = 1) AS assets_archived,
    (SELECT COUNT(*) FROM corpus_asset a WHERE a.corpus_id = c.corpus_id AND a.archived = 0) AS assets_active,
    (SELECT COALESCE(SUM(size), 0) FROM corpus_asset a WHERE a.corpus_id = c.corpus_id) AS assets_size,
    (SELECT MAX(mod_time) FROM corpus_asset a WHERE a.corpus_id = c.corpus_id) AS last_asset_mod_time,
    (SELECT md5 FROM corpus_asset a WHERE a.corpus_id = c.corpus_id ORDER BY mod_time DESC LIMIT 1) AS last_asset_md5,
    (SELECT COUNT(*) FROM _vec_passages d WHERE d.dataset_id = c.corpus_id) AS passages,
    (SELECT COUNT(*) FROM _vec_passages d WHERE d.dataset_id = c.corpus_id AND d.archived = 1) AS passages_archived,
    (SELECT COUNT(*) FROM _vec_passages d WHERE d.dataset_id = c.corpus_id AND d.archived = 0) AS passages_active,
    (SELECT COALESCE(AVG(LENGTH(content)), 0) FROM _vec_passages d WHERE d.dataset_id = c.corpus_id AND d.archived = 0) AS avg_passage_len,
    (SELECT MAX(scn) FROM _vec_passages d WHERE d.dataset_id = c.corpus_id) AS last_passage_scn,
    (SELECT embedding_model FROM _vec_passages d WHERE d.dataset_id = c.corpus_id AND embedding_model <> '' ORDER BY scn DESC LIMIT 1) AS embedding_model,
    (SELECT COUNT(*) FROM draft_job j WHERE j.corpus_id = c.corpus_id) AS draft_jobs
FROM corpus c`
	var args []any
	if req.Corpus != "" {
		query += " WHERE c.corpus_id = ?"
		args = append(args, req.Corpus)
	} else {
		query += " ORDER BY c.corpus_id"
	}
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CorpusInfo
	for rows.Next() {
		var info CorpusInfo
		if err := rows.Scan(&info.CorpusID, &info.SourceURI, &info.LastSCN, &info.LastIndexedAt,
			&info.Assets, &info.AssetsArchived, &info.AssetsActive, &info.AssetsSize,
			&info.LastAssetMod, &info.LastAssetMD5,
			&info.Passages, &info.PassagesArch, &info.PassagesActive,
			&info.AvgPassageLen, &info.LastPassageSCN, &info.EmbeddingModel, &info.DraftJobs); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
