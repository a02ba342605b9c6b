package mcp

import (
	"context"

	"github.com/vaidya-ai/vaidya/embeddings"
	"github.com/vaidya-ai/vaidya/embeddings/cache"
)

// cachingEmbedder memoizes query embeddings so repeated questions over
// the MCP surface skip the embedding round trip. Document embedding is
// passed through uncached.
type cachingEmbedder struct {
	inner embeddings.Embedder
	model string
	lru   *cache.LRU
}

func newCachingEmbedder(inner embeddings.Embedder, model string, capacity int) *cachingEmbedder {
	return &cachingEmbedder{inner: inner, model: model, lru: cache.NewLRU(capacity)}
}

func (c *cachingEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	return c.inner.EmbedDocuments(ctx, docs)
}

func (c *cachingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key, err := cache.Key(c.model, text)
	if err == nil {
		if vec, ok := c.lru.Get(key); ok {
			return vec, nil
		}
	}
	vec, embedErr := c.inner.EmbedQuery(ctx, text)
	if embedErr != nil {
		return nil, embedErr
	}
	if err == nil {
		c.lru.Add(key, vec)
	}
	return vec, nil
}
