package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"

	"github.com/vaidya-ai/vaidya/service"
)

//go:embed tools/ask.md
var descAsk string

//go:embed tools/search.md
var descSearch string

//go:embed tools/draft.md
var descDraft string

//go:embed tools/draftstatus.md
var descDraftStatus string

//go:embed tools/corpora.md
var descCorpora string

func registerTools(registry *protoserver.Registry, h *Handler) error {
	if err := protoserver.RegisterTool[*AskInput, *AskOutput](registry, "ask", descAsk, func(ctx context.Context, in *AskInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.ask(ctx, in)
		if err != nil {
			return buildErrorResult(err.Error())
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	if err := protoserver.RegisterTool[*SearchInput, *SearchOutput](registry, "search", descSearch, func(ctx context.Context, in *SearchInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.search(ctx, in)
		if err != nil {
			return buildErrorResult(err.Error())
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	if err := protoserver.RegisterTool[*DraftInput, *DraftOutput](registry, "draft", descDraft, func(ctx context.Context, in *DraftInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.draft(ctx, in)
		if err != nil {
			return buildErrorResult(err.Error())
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	if err := protoserver.RegisterTool[*DraftStatusInput, *DraftOutput](registry, "draftStatus", descDraftStatus, func(ctx context.Context, in *DraftStatusInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.draftStatus(ctx, in)
		if err != nil {
			return buildErrorResult(err.Error())
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	if err := protoserver.RegisterTool[*CorporaInput, *CorporaOutput](registry, "corpora", descCorpora, func(ctx context.Context, in *CorporaInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.corpora(ctx, in)
		if err != nil {
			return buildErrorResult(err.Error())
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	return nil
}

func buildErrorResult(message string) (*schema.CallToolResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewError(jsonrpc.InvalidParams, message, nil)
}

func buildSuccessResult(payload any) (*schema.CallToolResult, *jsonrpc.Error) {
	b, _ := json.Marshal(payload)
	return &schema.CallToolResult{
		Content: []schema.CallToolResultContentElem{
			schema.TextContent{Type: "text", Text: string(b)},
		},
		StructuredContent: map[string]any{"result": payload},
	}, nil
}

func (h *Handler) ask(ctx context.Context, in *AskInput) (*AskOutput, error) {
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil {
		in = &AskInput{}
	}
	if in.Corpus == "" {
		return nil, fmt.Errorf("mcp: missing corpus")
	}
	if in.Question == "" {
		return nil, fmt.Errorf("mcp: missing question")
	}
	resp, err := h.service.Ask(ctx, &service.AskRequest{
		DBPath:    h.dbPath,
		Corpus:    in.Corpus,
		Question:  in.Question,
		Limit:     in.Limit,
		Embedder:  h.embedder,
		Generator: h.generator,
	})
	if err != nil {
		return nil, err
	}
	return &AskOutput{Answer: resp}, nil
}

func (h *Handler) search(ctx context.Context, in *SearchInput) (*SearchOutput, error) {
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil {
		in = &SearchInput{}
	}
	if in.Corpus == "" {
		return nil, fmt.Errorf("mcp: missing corpus")
	}
	if in.Query == "" {
		return nil, fmt.Errorf("mcp: missing query")
	}
	results, err := h.service.Search(ctx, service.SearchRequest{
		DBPath:   h.dbPath,
		Corpus:   in.Corpus,
		Query:    in.Query,
		Mode:     service.SearchMode(in.Mode),
		Embedder: h.embedder,
		Limit:    in.Limit,
		MinScore: in.MinScore,
	})
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Results: results}, nil
}

func (h *Handler) draft(ctx context.Context, in *DraftInput) (*DraftOutput, error) {
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil {
		in = &DraftInput{}
	}
	if in.Corpus == "" {
		return nil, fmt.Errorf("mcp: missing corpus")
	}
	result, err := h.service.Draft(ctx, &service.DraftRequest{
		DBPath:    h.dbPath,
		Corpus:    in.Corpus,
		Topic:     in.Topic,
		JobID:     in.JobID,
		Embedder:  h.embedder,
		Generator: h.generator,
	})
	if err != nil {
		return nil, err
	}
	return &DraftOutput{Draft: result}, nil
}

func (h *Handler) draftStatus(ctx context.Context, in *DraftStatusInput) (*DraftOutput, error) {
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil || in.JobID == "" {
		return nil, fmt.Errorf("mcp: missing job_id")
	}
	result, err := h.service.DraftStatus(ctx, &service.DraftStatusRequest{DBPath: h.dbPath, JobID: in.JobID})
	if err != nil {
		return nil, err
	}
	return &DraftOutput{Draft: result}, nil
}

func (h *Handler) corpora(ctx context.Context, in *CorporaInput) (*CorporaOutput, error) {
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil {
		in = &CorporaInput{}
	}
	infos, err := h.service.Corpora(ctx, service.CorporaRequest{DBPath: h.dbPath, Corpus: in.Corpus})
	if err != nil {
		return nil, err
	}
	return &CorporaOutput{Corpora: infos}, nil
}
