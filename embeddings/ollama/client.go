package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "http://localhost:11434"
	embedEndpoint      = "/api/embed"
	defaultHTTPTimeout = 30 * time.Second
)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a non-default ollama instance.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// Client calls a local ollama /api/embed endpoint.
type Client struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	Error           string      `json:"error"`
}

// NewClient creates an embeddings client for a local ollama model.
func NewClient(model string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		Model:      model,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed creates embeddings for the given texts.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if c == nil {
		return nil, 0, fmt.Errorf("ollama client is nil")
	}
	if c.Model == "" {
		return nil, 0, fmt.Errorf("ollama model is required")
	}
	if len(texts) == 0 {
		return nil, 0, fmt.Errorf("no input texts provided")
	}
	reqBody, err := json.Marshal(embedRequest{Model: c.Model, Input: texts})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+embedEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("ollama API error: %s", strings.TrimSpace(string(body)))
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, 0, fmt.Errorf("ollama API error: %s", out.Error)
	}
	return out.Embeddings, out.PromptEvalCount, nil
}

// Embedder bridges the client to the embeddings.Embedder interface.
type Embedder struct{ C *Client }

// NewEmbedder creates an Embedder backed by a fresh client.
func NewEmbedder(model string, opts ...ClientOption) *Embedder {
	return &Embedder{C: NewClient(model, opts...)}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	vecs, _, err := e.embed(ctx, docs)
	return vecs, err
}

// EmbedDocumentsWithUsage also reports the tokens the batch consumed.
func (e *Embedder) EmbedDocumentsWithUsage(ctx context.Context, docs []string) ([][]float32, int, error) {
	return e.embed(ctx, docs)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, _, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vecs))
	}
	return vecs[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if e == nil || e.C == nil {
		return nil, 0, fmt.Errorf("ollama embedder not configured")
	}
	return e.C.Embed(ctx, texts)
}
