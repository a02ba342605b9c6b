package service

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `store:
  dsn: /tmp/vaidya/corpus.sqlite
corpora:
  classics:
    path: /data/classics
    description: classical texts
    include:
      - "*.md"
    exclude:
      - "*.draft.md"
    max_size_bytes: 1048576
embedder:
  provider: openai
  model: text-embedding-3-small
generator:
  provider: ollama
  model: llama3
  baseURL: http://localhost:11434
mcpServer:
  port: 6061
httpServer:
  addr: 127.0.0.1:8081
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.DSN != "/tmp/vaidya/corpus.sqlite" {
		t.Fatalf("store dsn mismatch: %q", cfg.Store.DSN)
	}
	c, ok := cfg.Corpora["classics"]
	if !ok {
		t.Fatalf("corpus classics missing")
	}
	if c.Path != "/data/classics" || len(c.Include) != 1 || len(c.Exclude) != 1 || c.MaxSizeBytes != 1048576 {
		t.Fatalf("corpus config mismatch: %+v", c)
	}
	if cfg.Embedder.Provider != "openai" || cfg.Generator.BaseURL != "http://localhost:11434" {
		t.Fatalf("model config mismatch: %+v %+v", cfg.Embedder, cfg.Generator)
	}
	if cfg.MCPServer.Port != 6061 || cfg.HTTPServer.Addr != "127.0.0.1:8081" {
		t.Fatalf("server config mismatch: %+v %+v", cfg.MCPServer, cfg.HTTPServer)
	}
}

func TestLoadConfigExpandsUserPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `store:
  dsn: ~/vaidya/corpus.sqlite
corpora:
  classics:
    path: ~/texts
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.DSN != filepath.Join(home, "vaidya", "corpus.sqlite") {
		t.Fatalf("dsn not expanded: %q", cfg.Store.DSN)
	}
	if cfg.Corpora["classics"].Path != filepath.Join(home, "texts") {
		t.Fatalf("corpus path not expanded: %q", cfg.Corpora["classics"].Path)
	}
}

func TestResolveCorporaFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `store:
  dsn: /tmp/corpus.sqlite
corpora:
  b-corpus:
    path: /data/b
  a-corpus:
    path: /data/a
  broken:
    path: ""
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	specs, dsn, err := ResolveCorpora(ResolveCorporaRequest{ConfigPath: path, All: true})
	if err != nil {
		t.Fatalf("ResolveCorpora --all: %v", err)
	}
	if dsn != "/tmp/corpus.sqlite" {
		t.Fatalf("dsn mismatch: %q", dsn)
	}
	if len(specs) != 2 || specs[0].Name != "a-corpus" || specs[1].Name != "b-corpus" {
		t.Fatalf("expected sorted pathful corpora, got %+v", specs)
	}

	specs, _, err = ResolveCorpora(ResolveCorporaRequest{ConfigPath: path, Corpus: "a-corpus"})
	if err != nil {
		t.Fatalf("ResolveCorpora single: %v", err)
	}
	if len(specs) != 1 || specs[0].Path != "/data/a" {
		t.Fatalf("single corpus mismatch: %+v", specs)
	}

	if _, _, err := ResolveCorpora(ResolveCorporaRequest{ConfigPath: path, Corpus: "missing"}); err == nil {
		t.Fatalf("expected error for unknown corpus")
	}
	if _, _, err := ResolveCorpora(ResolveCorporaRequest{All: true}); err == nil {
		t.Fatalf("--all without config should fail")
	}
}

func TestResolveCorporaFromFlags(t *testing.T) {
	specs, dsn, err := ResolveCorpora(ResolveCorporaRequest{
		Corpus:     "herbs",
		CorpusPath: "/data/herbs",
		Include:    []string{"*.md"},
	})
	if err != nil {
		t.Fatalf("ResolveCorpora: %v", err)
	}
	if dsn != "" {
		t.Fatalf("flag resolution should not supply a dsn, got %q", dsn)
	}
	if len(specs) != 1 || specs[0].Name != "herbs" || specs[0].Path != "/data/herbs" || len(specs[0].Include) != 1 {
		t.Fatalf("spec mismatch: %+v", specs)
	}

	if _, _, err := ResolveCorpora(ResolveCorporaRequest{Corpus: "herbs", RequirePath: true}); err == nil {
		t.Fatalf("RequirePath should reject empty path")
	}
	if _, _, err := ResolveCorpora(ResolveCorporaRequest{}); err == nil {
		t.Fatalf("expected error without corpus")
	}
}
