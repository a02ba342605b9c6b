package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vector"
)

func TestFallbackVectorSearch(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(t.TempDir() + "/fallback.sqlite")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := ensureSchema(ctx, db); err != nil {
		t.Fatalf("ensureSchema: %v", err)
	}

	insert := func(id string, emb []float32, content string) {
		blob, err := vector.EncodeEmbedding(emb)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		_, err = db.ExecContext(ctx, `INSERT INTO _vec_passages(dataset_id, id, asset_id, doc_id, section_id, title, content, meta, embedding, embedding_model, scn, archived)
VALUES('ayurveda', ?, 'doc.md', 'doc.md', ?, '', ?, '{"path":"doc.md"}', ?, 'simple', 1, 0)`, id, id, content, blob)
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	insert("doc.md#a", []float32{1, 0, 0}, "vata dosha")
	insert("doc.md#b", []float32{0.9, 0.1, 0}, "pitta dosha")
	insert("doc.md#c", []float32{0, 0, 1}, "unrelated")

	hits, err := fallbackVectorSearch(ctx, db, "ayurveda", []float32{1, 0, 0}, 0.5, 10)
	if err != nil {
		t.Fatalf("fallbackVectorSearch: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits above minScore, got %d", len(hits))
	}
	if hits[0].ID != "doc.md#a" {
		t.Fatalf("expected exact match first, got %q", hits[0].ID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("scores not descending: %v %v", hits[0].Score, hits[1].Score)
	}
	if hits[0].Path != "doc.md" {
		t.Fatalf("expected path from meta, got %q", hits[0].Path)
	}
}

func TestFallbackVectorSearchSkipsArchived(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(t.TempDir() + "/archived.sqlite")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := ensureSchema(ctx, db); err != nil {
		t.Fatalf("ensureSchema: %v", err)
	}
	blob, err := vector.EncodeEmbedding([]float32{1, 0, 0})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO _vec_passages(dataset_id, id, asset_id, doc_id, section_id, title, content, meta, embedding, embedding_model, scn, archived)
VALUES('ayurveda', 'doc.md#a', 'doc.md', 'doc.md', 'doc.md#a', '', 'gone', '{}', ?, 'simple', 1, 1)`, blob); err != nil {
		t.Fatalf("insert: %v", err)
	}
	hits, err := fallbackVectorSearch(ctx, db, "ayurveda", []float32{1, 0, 0}, 0, 10)
	if err != nil {
		t.Fatalf("fallbackVectorSearch: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected archived passages skipped, got %d hits", len(hits))
	}
}

func TestSearchModes(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("triphala.md", "# Triphala\n\nTriphala combines amalaki, bibhitaki and haritaki. It supports digestion and gentle elimination.\n")
	write("ashwagandha.md", "# Ashwagandha\n\nAshwagandha is a rasayana herb traditionally used for vitality and calm.\n")
	write("vata.md", "# Vata Dosha\n\nVata governs movement. Imbalance shows as dryness, restlessness and irregular digestion.\n")

	svc, err := NewService(WithDSN(t.TempDir()+"/search.sqlite"), WithEmbedder(NewSimpleEmbedder(64)))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer svc.Close()
	if err := svc.Ingest(ctx, &IngestRequest{Corpora: []CorpusSpec{{Name: "ayurveda", Path: root}}}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	for _, mode := range []SearchMode{SearchVector, SearchKeyword, SearchHybrid} {
		hits, err := svc.Search(ctx, SearchRequest{Corpus: "ayurveda", Query: "triphala digestion", Mode: mode, Limit: 5})
		if err != nil {
			t.Fatalf("search %v: %v", mode, err)
		}
		if len(hits) == 0 {
			t.Fatalf("search %v: no results", mode)
		}
		found := false
		for _, h := range hits {
			if h.DocID == "triphala.md" {
				found = true
			}
		}
		if !found {
			t.Fatalf("search %v: triphala.md not retrieved", mode)
		}
		for i := 1; i < len(hits); i++ {
			if hits[i].Score > hits[i-1].Score {
				t.Fatalf("search %v: results not sorted by score", mode)
			}
		}
	}
}

func TestSearchRequiresCorpusAndQuery(t *testing.T) {
	svc, err := NewService(WithDSN(t.TempDir() + "/empty.sqlite"))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer svc.Close()
	if _, err := svc.Search(context.Background(), SearchRequest{Corpus: "", Query: "x"}); err == nil {
		t.Fatalf("expected error for missing corpus")
	}
	if _, err := svc.Search(context.Background(), SearchRequest{Corpus: "c", Query: ""}); err == nil {
		t.Fatalf("expected error for missing query")
	}
}

func TestQueryTerms(t *testing.T) {
	terms := queryTerms("What is the role of Triphala in digestion, and how does it work?")
	want := map[string]bool{"role": true, "triphala": true, "digestion": true, "work": true}
	if len(terms) != len(want) {
		t.Fatalf("unexpected terms: %v", terms)
	}
	for _, term := range terms {
		if !want[term] {
			t.Fatalf("unexpected term %q in %v", term, terms)
		}
	}
}

func TestFTSMatchExpr(t *testing.T) {
	expr := ftsMatchExpr(`triphala "digestion"`)
	if expr != `"triphala" OR "digestion"` {
		t.Fatalf("unexpected match expr: %q", expr)
	}
	if ftsMatchExpr("of the and") != "" {
		t.Fatalf("stopword-only query should produce empty expr")
	}
}
