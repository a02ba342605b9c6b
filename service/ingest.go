package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vaidya-ai/vaidya/corpus/splitter"
	"github.com/vaidya-ai/vaidya/embeddings"
)

func (r *IngestRequest) init() {
	if r.SectionSize <= 0 {
		r.SectionSize = 4096
	}
	if r.BatchSize <= 0 {
		r.BatchSize = 64
	}
	if r.Logf == nil {
		r.Logf = func(string, ...any) {}
	}
}

// Ingest walks each corpus root, sections changed documents into passages,
// embeds them and stores the result. Unchanged documents (same MD5) are
// skipped; documents no longer on disk are archived under a fresh SCN.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) error {
	req.init()
	if len(req.Corpora) == 0 {
		return fmt.Errorf("at least one corpus is required")
	}
	embedder, err := s.resolveEmbedder(req.Embedder)
	if err != nil {
		return err
	}
	db, err := s.ensureDB(ctx, req.DBPath, false)
	if err != nil {
		return err
	}
	conn, err := ensureSchemaConn(ctx, db)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, spec := range req.Corpora {
		if err := s.ingestCorpus(ctx, conn, spec, embedder, req); err != nil {
			return fmt.Errorf("ingest corpus %v: %w", spec.Name, err)
		}
	}
	return nil
}

func (s *Service) ingestCorpus(ctx context.Context, q sqlQueryer, spec CorpusSpec, embedder embeddings.Embedder, req *IngestRequest) error {
	root, err := filepath.Abs(spec.Path)
	if err != nil {
		return err
	}
	if err := ensureCorpus(ctx, q, spec.Name, root); err != nil {
		return err
	}
	matcher := newMatcher(spec)
	files, err := listFiles(root, matcher)
	if err != nil {
		return err
	}
	known, err := loadAssets(ctx, q, spec.Name)
	if err != nil {
		return err
	}
	// The SCN is allocated on the first change, so re-running over an
	// unchanged tree leaves the corpus bookkeeping untouched.
	var scn uint64
	allocSCN := func() error {
		if scn != 0 {
			return nil
		}
		var err error
		scn, err = nextSCN(ctx, q, spec.Name)
		return err
	}

	factory := splitter.NewFactory(req.SectionSize)
	seen := map[string]bool{}
	var added, updated, unchanged, archived, passageCount, tokens int
	for i, f := range files {
		seen[f.assetID] = true
		prev, exists := known[f.assetID]
		if exists && !prev.archived && prev.md5 == f.md5 {
			unchanged++
			continue
		}
		if err := allocSCN(); err != nil {
			return err
		}
		passages, err := splitFile(f.rel, f.data, factory)
		if err != nil {
			return fmt.Errorf("split %v: %w", f.rel, err)
		}
		if err := upsertAsset(ctx, q, spec.Name, f, scn); err != nil {
			return err
		}
		batchTokens, err := upsertPassages(ctx, q, spec.Name, f.assetID, passages, embedder, req.BatchSize, scn, f.md5, f.rel, req.Model)
		if err != nil {
			return fmt.Errorf("index %v: %w", f.rel, err)
		}
		tokens += batchTokens
		passageCount += len(passages)
		if exists {
			updated++
		} else {
			added++
		}
		if req.Progress != nil {
			req.Progress(spec.Name, i+1, len(files), f.rel, batchTokens)
		}
	}
	for assetID, prev := range known {
		if seen[assetID] || prev.archived {
			continue
		}
		if err := allocSCN(); err != nil {
			return err
		}
		if err := archiveAsset(ctx, q, spec.Name, assetID, scn); err != nil {
			return err
		}
		archived++
	}
	if req.Prune {
		if err := pruneArchived(ctx, q, spec.Name); err != nil {
			return err
		}
	}
	req.Logf("corpus %v scn=%v: %v added, %v updated, %v unchanged, %v archived, %v passages, %v tokens",
		spec.Name, scn, added, updated, unchanged, archived, passageCount, tokens)
	return nil
}
