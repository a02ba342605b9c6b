package mcp

import (
	"context"

	"github.com/viant/jsonrpc/transport"
	protoclient "github.com/viant/mcp-protocol/client"
	"github.com/viant/mcp-protocol/logger"
	protoserver "github.com/viant/mcp-protocol/server"

	"github.com/vaidya-ai/vaidya/embeddings"
	"github.com/vaidya-ai/vaidya/llm"
	"github.com/vaidya-ai/vaidya/service"
)

const queryCacheSize = 1000

type Handler struct {
	*protoserver.DefaultHandler
	service   *service.Service
	dbPath    string
	embedder  embeddings.Embedder
	generator llm.Generator
	ops       protoclient.Operations
}

// NewHandler builds the MCP handler factory exposing ask, search, draft
// and corpora tools.
func NewHandler(svc *service.Service, dbPath string, embedder embeddings.Embedder, generator llm.Generator, model string) protoserver.NewHandler {
	return func(_ context.Context, notifier transport.Notifier, logger logger.Logger, clientOperation protoclient.Operations) (protoserver.Handler, error) {
		base := protoserver.NewDefaultHandler(notifier, logger, clientOperation)
		if embedder != nil {
			embedder = newCachingEmbedder(embedder, model, queryCacheSize)
		}
		h := &Handler{
			DefaultHandler: base,
			service:        svc,
			dbPath:         dbPath,
			embedder:       embedder,
			generator:      generator,
			ops:            clientOperation,
		}
		if err := registerTools(base.Registry, h); err != nil {
			return nil, err
		}
		return h, nil
	}
}
