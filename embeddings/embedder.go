package embeddings

import "context"

// Embedder computes vector embeddings for passages and queries.
// Implementations that can report token usage may additionally expose
// EmbedDocumentsWithUsage(ctx, docs) ([][]float32, int, error), which
// callers discover by type assertion.
type Embedder interface {
	EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
