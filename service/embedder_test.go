package service

import (
	"context"
	"testing"
)

func TestSimpleEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	e := NewSimpleEmbedder(32)
	a, err := e.EmbedQuery(ctx, "triphala supports digestion")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := e.EmbedQuery(ctx, "triphala supports digestion")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("expected dim 32, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSimpleEmbedderSharedTermsScoreHigher(t *testing.T) {
	ctx := context.Background()
	e := NewSimpleEmbedder(64)
	docs, err := e.EmbedDocuments(ctx, []string{
		"triphala supports digestion and elimination",
		"vata governs movement in the body",
	})
	if err != nil {
		t.Fatalf("embed docs: %v", err)
	}
	q, err := e.EmbedQuery(ctx, "what supports digestion")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}
	if cosine(q, docs[0]) <= cosine(q, docs[1]) {
		t.Fatalf("query should be closer to the overlapping document")
	}
}

func TestSimpleEmbedderEmptyText(t *testing.T) {
	e := NewSimpleEmbedder(8)
	v, err := e.EmbedQuery(context.Background(), "   ")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if v[0] != 1 {
		t.Fatalf("empty text should embed to the unit seed vector, got %v", v)
	}
}
