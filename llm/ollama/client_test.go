package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vaidya-ai/vaidya/llm"
)

func TestGenerate(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{
			Response:        "Vata governs movement [1].",
			Model:           "llama3",
			PromptEvalCount: 12,
			EvalCount:       6,
		})
	}))
	defer srv.Close()

	c := NewClient("llama3", WithBaseURL(srv.URL))
	out, err := c.Generate(context.Background(), &llm.GenerateRequest{
		System:      "sys",
		Prompt:      "What does vata govern?",
		Temperature: 0.3,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gotReq.Model != "llama3" || gotReq.System != "sys" || gotReq.Stream {
		t.Fatalf("request = %+v", gotReq)
	}
	if gotReq.Options["temperature"] != 0.3 || gotReq.Options["num_predict"] != float64(256) {
		t.Fatalf("options = %+v", gotReq.Options)
	}
	if out.Text != "Vata governs movement [1]." || out.Model != "llama3" || out.PromptTokens != 12 || out.CompletionTokens != 6 {
		t.Fatalf("response = %+v", out)
	}
}

func TestGenerateValidation(t *testing.T) {
	c := NewClient("")
	if _, err := c.Generate(context.Background(), &llm.GenerateRequest{Prompt: "q"}); err == nil {
		t.Fatalf("missing model should error")
	}
	c = NewClient("m")
	if _, err := c.Generate(context.Background(), nil); err == nil {
		t.Fatalf("nil request should error")
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Error: "model not loaded"})
	}))
	defer srv.Close()

	c := NewClient("m", WithBaseURL(srv.URL))
	if _, err := c.Generate(context.Background(), &llm.GenerateRequest{Prompt: "q"}); err == nil {
		t.Fatalf("payload error should surface")
	}
}
