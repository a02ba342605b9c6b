package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	embeddingsEndpoint    = "/embeddings"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultHTTPClientTO   = 30 * time.Second
)

// Request is the OpenAI embeddings API request payload.
type Request struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// Response is the OpenAI embeddings API response payload.
type Response struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  EmbeddingUsage  `json:"usage"`
}

// EmbeddingData is a single embedding in the response.
type EmbeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// EmbeddingUsage reports token usage for a request.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint, e.g. for a proxy.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.BaseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.HTTPClient = hc }
}

// Client calls the OpenAI embeddings API.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// NewClient creates an embeddings client. An empty key falls back to
// OPENAI_API_KEY; an empty model falls back to text-embedding-3-small.
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: defaultHTTPClientTO},
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model == "" {
		c.Model = defaultEmbeddingModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed creates embeddings for the given texts.
func (c *Client) Embed(ctx context.Context, texts []string) (vectors [][]float32, totalTokens int, err error) {
	reqBody, err := json.Marshal(Request{Model: c.Model, Input: texts})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+embeddingsEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct{ Message, Type string } `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return nil, 0, fmt.Errorf("API error (%s): %s", errResp.Error.Type, errResp.Error.Message)
		}
		return nil, 0, fmt.Errorf("API error: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	var embeddingResp Response
	if err := json.Unmarshal(data, &embeddingResp); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}
	out := make([][]float32, len(embeddingResp.Data))
	for i := range embeddingResp.Data {
		out[i] = embeddingResp.Data[i].Embedding
	}
	return out, embeddingResp.Usage.TotalTokens, nil
}

// Embedder bridges the client to the embeddings.Embedder interface.
type Embedder struct{ C *Client }

// NewEmbedder creates an Embedder backed by a fresh client.
func NewEmbedder(apiKey, model string, opts ...ClientOption) *Embedder {
	return &Embedder{C: NewClient(apiKey, model, opts...)}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	v, _, err := e.C.Embed(ctx, docs)
	return v, err
}

// EmbedDocumentsWithUsage also reports the tokens the batch consumed.
func (e *Embedder) EmbedDocumentsWithUsage(ctx context.Context, docs []string) ([][]float32, int, error) {
	return e.C.Embed(ctx, docs)
}

func (e *Embedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	v, _, err := e.C.Embed(ctx, []string{q})
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return []float32{}, nil
	}
	return v[0], nil
}
