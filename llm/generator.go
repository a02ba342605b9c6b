package llm

import "context"

// Generator is a minimal interface for text generation backends.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest carries a single generation call.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// GenerateResponse carries the generated text and usage accounting.
type GenerateResponse struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}
