package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/viant/mcp-protocol/schema"
	mcpsrv "github.com/viant/mcp/server"

	"github.com/vaidya-ai/vaidya/embeddings"
	"github.com/vaidya-ai/vaidya/httpapi"
	"github.com/vaidya-ai/vaidya/llm"
	vmcp "github.com/vaidya-ai/vaidya/mcp"
	"github.com/vaidya-ai/vaidya/service"
)

func serveCmd(args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := flags.String("db", "", "SQLite database path (required unless config has store.dsn)")
	configPath := flags.String("config", "", "config yaml (optional, defaults to ~/vaidya/config.yaml if present)")
	mcpAddr := flags.String("mcp-addr", "", "MCP server address (default from config or 127.0.0.1:6061)")
	httpAddr := flags.String("http-addr", "", "HTTP API address (default from config or 127.0.0.1:8081)")
	model := flags.String("model", "text-embedding-3-small", "embedding model")
	genModel := flags.String("gen-model", "", "generation model (provider default when empty)")
	apiKey := flags.String("openai-key", "", "OpenAI API key (optional, defaults to OPENAI_API_KEY)")
	embedderName := flags.String("embedder", "openai", "embedder: openai|ollama|simple")
	generatorName := flags.String("generator", "openai", "generator: openai|ollama|none")
	ollamaBaseURL := flags.String("ollama-base-url", "", "ollama base URL (or OLLAMA_BASE_URL)")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	maybeDebugSleep("serve", *debugSleep)

	configPathVal := resolveConfigPath(*configPath)
	var cfg *service.Config
	if configPathVal != "" {
		var err error
		cfg, err = service.LoadConfig(configPathVal)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	dbPathVal := *dbPath
	if dbPathVal == "" && cfg != nil {
		dbPathVal = cfg.Store.DSN
	}
	if dbPathVal == "" {
		flags.Usage()
		os.Exit(2)
	}

	emb, gen, modelVal, err := serveModels(cfg, *embedderName, *generatorName, *apiKey, *model, *genModel, *ollamaBaseURL)
	if err != nil {
		log.Fatalf("serve: %v", err)
	}

	svc, err := service.NewService(service.WithDSN(dbPathVal), service.WithEmbedder(emb), service.WithGenerator(gen))
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	defer func() { _ = svc.Close() }()

	mcpAddrVal := resolveAddr(*mcpAddr, cfg, func(c *service.Config) service.ServerConfig { return c.MCPServer }, "127.0.0.1:6061")
	httpAddrVal := resolveAddr(*httpAddr, cfg, func(c *service.Config) service.ServerConfig { return c.HTTPServer }, "127.0.0.1:8081")

	server, err := mcpsrv.New(
		mcpsrv.WithImplementation(schema.Implementation{Name: "vaidya-mcp", Version: "0.1.0"}),
		mcpsrv.WithNewHandler(vmcp.NewHandler(svc, dbPathVal, emb, gen, modelVal)),
		mcpsrv.WithEndpointAddress(mcpAddrVal),
		mcpsrv.WithRootRedirect(true),
		mcpsrv.WithStreamableURI("/mcp"),
	)
	if err != nil {
		log.Fatal(err)
	}

	server.UseStreamableHTTP(true)
	mcpHTTP := server.HTTP(ctx, mcpAddrVal)
	mcpHTTP.ReadHeaderTimeout = 10 * time.Second
	mcpHTTP.ReadTimeout = 60 * time.Second
	mcpHTTP.WriteTimeout = 60 * time.Second
	mcpHTTP.IdleTimeout = 120 * time.Second

	apiServer := &http.Server{
		Addr:              httpAddrVal,
		Handler:           httpapi.NewServer(svc, dbPathVal, emb, gen, slog.Default()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("vaidya-mcp listening on %s", mcpHTTP.Addr)
	log.Printf("vaidya-api listening on %s", apiServer.Addr)

	errCh := make(chan error, 2)
	go func() { errCh <- mcpHTTP.ListenAndServe() }()
	go func() { errCh <- apiServer.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %v", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Printf("server error: %v", err)
		}
	}
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := mcpHTTP.Shutdown(ctxShutdown); err != nil {
		log.Printf("mcp shutdown error: %v", err)
	}
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
	log.Printf("vaidya stopped")
}

// serveModels resolves embedder and generator from config first, flags
// second.
func serveModels(cfg *service.Config, embedderName, generatorName, apiKey, model, genModel, ollamaBaseURL string) (embeddings.Embedder, llm.Generator, string, error) {
	if cfg != nil {
		if cfg.Embedder.Provider != "" {
			embedderName = cfg.Embedder.Provider
		}
		if cfg.Embedder.Model != "" {
			model = cfg.Embedder.Model
		}
		if cfg.Embedder.APIKey != "" && apiKey == "" {
			apiKey = cfg.Embedder.APIKey
		}
		if cfg.Embedder.BaseURL != "" && ollamaBaseURL == "" {
			ollamaBaseURL = cfg.Embedder.BaseURL
		}
		if cfg.Generator.Provider != "" {
			generatorName = cfg.Generator.Provider
		}
		if cfg.Generator.Model != "" && genModel == "" {
			genModel = cfg.Generator.Model
		}
	}
	emb, err := selectEmbedder(embedderName, apiKey, model, ollamaBaseURL)
	if err != nil {
		return nil, nil, "", err
	}
	gen, err := selectGenerator(generatorName, apiKey, genModel, ollamaBaseURL)
	if err != nil {
		return nil, nil, "", err
	}
	return emb, gen, model, nil
}

func resolveAddr(flagAddr string, cfg *service.Config, pick func(*service.Config) service.ServerConfig, fallback string) string {
	if flagAddr != "" {
		return flagAddr
	}
	if cfg != nil {
		sc := pick(cfg)
		if sc.Addr != "" {
			return sc.Addr
		}
		if sc.Port > 0 {
			return fmt.Sprintf("127.0.0.1:%d", sc.Port)
		}
	}
	return fallback
}

func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(home, "vaidya", "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
