package service

import (
	"context"
	"strings"
)

// SimpleEmbedder returns deterministic bag-of-words vectors for local
// and offline use. Texts sharing terms land near each other, which is
// enough for tests and air-gapped setups.
type SimpleEmbedder struct {
	Dim int
}

// NewSimpleEmbedder constructs a simple deterministic embedder.
func NewSimpleEmbedder(dim int) *SimpleEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &SimpleEmbedder{Dim: dim}
}

// EmbedDocuments embeds documents deterministically.
func (e *SimpleEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, s := range docs {
		out[i] = embedString(s, e.Dim)
	}
	return out, nil
}

// EmbedQuery embeds a query deterministically.
func (e *SimpleEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	return embedString(q, e.Dim), nil
}

func embedString(s string, dim int) []float32 {
	if dim <= 0 {
		dim = 64
	}
	v := make([]float32, dim)
	tokens := strings.Fields(strings.ToLower(s))
	if len(tokens) == 0 {
		v[0] = 1
		return v
	}
	for _, token := range tokens {
		var h uint32 = 2166136261
		for i := 0; i < len(token); i++ {
			h = (h ^ uint32(token[i])) * 16777619
		}
		// Each term contributes to a couple of buckets with a signed weight.
		v[h%uint32(dim)] += 1
		seed := h*1664525 + 1013904223
		if seed%2 == 0 {
			v[seed%uint32(dim)] += 0.5
		} else {
			v[seed%uint32(dim)] -= 0.5
		}
	}
	return v
}
