package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/scy/cred/secret"
	"gopkg.in/yaml.v3"
)

// Config defines corpus mappings and model settings for batch operations.
type Config struct {
	Store      StoreConfig             `yaml:"store"`
	Corpora    map[string]CorpusConfig `yaml:"corpora"`
	Embedder   ModelConfig             `yaml:"embedder"`
	Generator  ModelConfig             `yaml:"generator"`
	MCPServer  ServerConfig            `yaml:"mcpServer"`
	HTTPServer ServerConfig            `yaml:"httpServer"`
}

// StoreConfig defines passage store settings.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// CorpusConfig defines per-corpus settings.
type CorpusConfig struct {
	Path         string   `yaml:"path"`
	Description  string   `yaml:"description"`
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	MaxSizeBytes int64    `yaml:"max_size_bytes"`
}

// ModelConfig selects a provider and model for embeddings or generation.
type ModelConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"baseURL,omitempty"`
	APIKey    string `yaml:"apiKey,omitempty"`
	KeySecret string `yaml:"keySecret,omitempty"`
}

// ServerConfig defines listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Port int    `yaml:"port"`
}

// LoadConfig reads and normalizes a YAML config.
func LoadConfig(path string) (*Config, error) {
	path, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if cfg.Store.DSN != "" {
		expanded, err := expandUserPath(cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		cfg.Store.DSN = expanded
	}
	for name, c := range cfg.Corpora {
		if c.Path == "" {
			continue
		}
		expanded, err := expandUserPath(c.Path)
		if err != nil {
			return nil, err
		}
		c.Path = expanded
		cfg.Corpora[name] = c
	}
	for _, mc := range []*ModelConfig{&cfg.Embedder, &cfg.Generator} {
		if mc.KeySecret == "" || mc.APIKey != "" {
			continue
		}
		key, err := ResolveSecret(context.Background(), mc.KeySecret)
		if err != nil {
			return nil, err
		}
		mc.APIKey = key
	}
	return &cfg, nil
}

// ResolveSecret loads an API key from a secret reference.
func ResolveSecret(ctx context.Context, secretRef string) (string, error) {
	secretRef = strings.TrimSpace(secretRef)
	if secretRef == "" {
		return "", nil
	}
	svc := secret.New()
	sec, err := svc.Lookup(ctx, secret.Resource(secretRef))
	if err != nil {
		return "", err
	}
	return sec.String(), nil
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return path, nil
	}
	if trimmed[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if trimmed == "~" {
		return home, nil
	}
	if !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	return filepath.Join(home, trimmed[2:]), nil
}
