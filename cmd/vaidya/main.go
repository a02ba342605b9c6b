package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/vaidya-ai/vaidya/embeddings"
	embollama "github.com/vaidya-ai/vaidya/embeddings/ollama"
	embopenai "github.com/vaidya-ai/vaidya/embeddings/openai"
	"github.com/vaidya-ai/vaidya/llm"
	llmollama "github.com/vaidya-ai/vaidya/llm/ollama"
	llmopenai "github.com/vaidya-ai/vaidya/llm/openai"
	"github.com/vaidya-ai/vaidya/service"
)

func main() {
	startGops()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "index":
		indexCmd(os.Args[2:])
	case "search":
		searchCmd(os.Args[2:])
	case "ask":
		askCmd(os.Args[2:])
	case "draft":
		draftCmd(os.Args[2:])
	case "corpora":
		corporaCmd(os.Args[2:])
	case "admin":
		adminCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: vaidya <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  index    Index a corpus folder into SQLite (sqlite-vec + fts5)")
	fmt.Fprintln(os.Stderr, "  search   Retrieve passages (hybrid/vector/keyword)")
	fmt.Fprintln(os.Stderr, "  ask      Answer a question with citations from the corpus")
	fmt.Fprintln(os.Stderr, "  draft    Run the article drafting pipeline for a topic")
	fmt.Fprintln(os.Stderr, "  corpora  Show corpus metadata summary")
	fmt.Fprintln(os.Stderr, "  admin    Maintenance tasks (check/prune/rebuild/rebuild-fts)")
	fmt.Fprintln(os.Stderr, "  serve    Run the MCP and HTTP servers")
}

func indexCmd(args []string) {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	dbPath := flags.String("db", "", "SQLite database path (required)")
	dbForce := flags.Bool("db-force", false, "force --db even when config has store dsn")
	corpus := flags.String("corpus", "", "corpus name (required)")
	corpusPath := flags.String("path", "", "filesystem path to index (required)")
	configPath := flags.String("config", "", "config yaml with corpora (optional)")
	allCorpora := flags.Bool("all", false, "index all corpora in config (requires --config)")
	include := flags.String("include", "", "comma-separated include patterns")
	exclude := flags.String("exclude", "", "comma-separated exclude patterns")
	maxSize := flags.Int64("max-size", 0, "max file size in bytes")
	model := flags.String("model", "text-embedding-3-small", "embedding model")
	apiKey := flags.String("openai-key", "", "OpenAI API key (optional, defaults to OPENAI_API_KEY)")
	embedderName := flags.String("embedder", "openai", "embedder: openai|ollama|simple")
	ollamaBaseURL := flags.String("ollama-base-url", "", "ollama base URL (or OLLAMA_BASE_URL)")
	sectionSize := flags.Int("section-size", 4096, "default section size in bytes")
	batchSize := flags.Int("batch", 64, "embedding batch size")
	prune := flags.Bool("prune", false, "hard-delete archived rows after indexing")
	progress := flags.Bool("progress", false, "show indexing progress")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("index", *debugSleep)

	corpora, cfgDB, err := service.ResolveCorpora(service.ResolveCorporaRequest{
		Corpus:       *corpus,
		CorpusPath:   *corpusPath,
		ConfigPath:   *configPath,
		All:          *allCorpora,
		RequirePath:  true,
		Include:      service.ParseCSV(*include),
		Exclude:      service.ParseCSV(*exclude),
		MaxSizeBytes: *maxSize,
	})
	if err != nil {
		log.Fatalf("resolve corpora: %v", err)
	}
	dbPathVal := resolveDBPath(*dbPath, cfgDB, *dbForce, "")
	if dbPathVal == "" {
		flags.Usage()
		os.Exit(2)
	}

	emb, err := selectEmbedder(*embedderName, *apiKey, *model, *ollamaBaseURL)
	if err != nil {
		log.Fatalf("embedder: %v", err)
	}
	svc, err := service.NewService(service.WithDSN(dbPathVal), service.WithEmbedder(emb))
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	defer func() { _ = svc.Close() }()

	if err := svc.Ingest(ctx, &service.IngestRequest{
		DBPath:      dbPathVal,
		Corpora:     corpora,
		Embedder:    emb,
		Model:       *model,
		SectionSize: *sectionSize,
		BatchSize:   *batchSize,
		Prune:       *prune,
		Logf:        log.Printf,
		Progress:    progressPrinter(*progress),
	}); err != nil {
		log.Fatalf("index: %v", err)
	}
}

func searchCmd(args []string) {
	flags := flag.NewFlagSet("search", flag.ExitOnError)
	dbPath := flags.String("db", "", "SQLite database path (required)")
	dbForce := flags.Bool("db-force", false, "force --db even when config has store dsn")
	configPath := flags.String("config", "", "config yaml with corpora (optional)")
	corpus := flags.String("corpus", "", "corpus name (required)")
	query := flags.String("query", "", "query text (required)")
	mode := flags.String("mode", "hybrid", "search mode: hybrid|vector|keyword")
	model := flags.String("model", "text-embedding-3-small", "embedding model")
	apiKey := flags.String("openai-key", "", "OpenAI API key (optional, defaults to OPENAI_API_KEY)")
	embedderName := flags.String("embedder", "openai", "embedder: openai|ollama|simple")
	ollamaBaseURL := flags.String("ollama-base-url", "", "ollama base URL (or OLLAMA_BASE_URL)")
	limit := flags.Int("limit", 10, "max results")
	minScore := flags.Float64("min-score", 0, "minimum fused score")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	if *corpus == "" || *query == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("search", *debugSleep)

	cfgDB := configStoreDSN(*configPath)
	dbPathVal := resolveDBPath(*dbPath, cfgDB, *dbForce, "")
	if dbPathVal == "" {
		flags.Usage()
		os.Exit(2)
	}

	emb, err := selectEmbedder(*embedderName, *apiKey, *model, *ollamaBaseURL)
	if err != nil {
		log.Fatalf("embedder: %v", err)
	}
	svc, err := service.NewService(service.WithDSN(dbPathVal), service.WithEmbedder(emb))
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	defer func() { _ = svc.Close() }()

	results, err := svc.Search(ctx, service.SearchRequest{
		DBPath:   dbPathVal,
		Corpus:   *corpus,
		Query:    *query,
		Mode:     service.SearchMode(*mode),
		Embedder: emb,
		Model:    *model,
		Limit:    *limit,
		MinScore: *minScore,
	})
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	for _, item := range results {
		out := item.Content
		if len(out) > 200 {
			out = out[:200] + "..."
		}
		fmt.Printf("id=%s score=%.4f vec=%.4f kw=%.4f path=%s\n%s\n\n",
			item.ID, item.Score, item.VectorScore, item.KeywordScore, item.Path, out)
	}
}

func askCmd(args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	dbPath := flags.String("db", "", "SQLite database path (required)")
	dbForce := flags.Bool("db-force", false, "force --db even when config has store dsn")
	configPath := flags.String("config", "", "config yaml with corpora (optional)")
	corpus := flags.String("corpus", "", "corpus name (required)")
	question := flags.String("question", "", "question text (required)")
	model := flags.String("model", "text-embedding-3-small", "embedding model")
	genModel := flags.String("gen-model", "", "generation model (provider default when empty)")
	apiKey := flags.String("openai-key", "", "OpenAI API key (optional, defaults to OPENAI_API_KEY)")
	embedderName := flags.String("embedder", "openai", "embedder: openai|ollama|simple")
	generatorName := flags.String("generator", "openai", "generator: openai|ollama|none")
	ollamaBaseURL := flags.String("ollama-base-url", "", "ollama base URL (or OLLAMA_BASE_URL)")
	limit := flags.Int("limit", 6, "max passages in context")
	jsonOut := flags.Bool("json", false, "print the full response as JSON")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	if *corpus == "" || *question == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("ask", *debugSleep)

	cfgDB := configStoreDSN(*configPath)
	dbPathVal := resolveDBPath(*dbPath, cfgDB, *dbForce, "")
	if dbPathVal == "" {
		flags.Usage()
		os.Exit(2)
	}

	emb, err := selectEmbedder(*embedderName, *apiKey, *model, *ollamaBaseURL)
	if err != nil {
		log.Fatalf("embedder: %v", err)
	}
	gen, err := selectGenerator(*generatorName, *apiKey, *genModel, *ollamaBaseURL)
	if err != nil {
		log.Fatalf("generator: %v", err)
	}
	svc, err := service.NewService(service.WithDSN(dbPathVal), service.WithEmbedder(emb), service.WithGenerator(gen))
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	defer func() { _ = svc.Close() }()

	resp, err := svc.Ask(ctx, &service.AskRequest{
		DBPath:   dbPathVal,
		Corpus:   *corpus,
		Question: *question,
		Limit:    *limit,
		Embedder: emb,
		Logf:     log.Printf,
	})
	if err != nil {
		log.Fatalf("ask: %v", err)
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
		return
	}
	fmt.Println(resp.Answer)
	if resp.Notice != "" {
		fmt.Printf("\n%s\n", resp.Notice)
	}
	if len(resp.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range resp.Citations {
			fmt.Printf("  [%d] %s (score=%.4f)\n", c.Ref, c.SectionID, c.Score)
		}
	}
	fmt.Printf("\n%s\n", resp.Disclaimer)
}

func draftCmd(args []string) {
	flags := flag.NewFlagSet("draft", flag.ExitOnError)
	dbPath := flags.String("db", "", "SQLite database path (required)")
	dbForce := flags.Bool("db-force", false, "force --db even when config has store dsn")
	configPath := flags.String("config", "", "config yaml with corpora (optional)")
	corpus := flags.String("corpus", "", "corpus name (required)")
	topic := flags.String("topic", "", "article topic (required for a new job)")
	jobID := flags.String("job", "", "resume an existing job id")
	status := flags.Bool("status", false, "report job status without running stages")
	model := flags.String("model", "text-embedding-3-small", "embedding model")
	genModel := flags.String("gen-model", "", "generation model (provider default when empty)")
	apiKey := flags.String("openai-key", "", "OpenAI API key (optional, defaults to OPENAI_API_KEY)")
	embedderName := flags.String("embedder", "openai", "embedder: openai|ollama|simple")
	generatorName := flags.String("generator", "openai", "generator: openai|ollama|none")
	ollamaBaseURL := flags.String("ollama-base-url", "", "ollama base URL (or OLLAMA_BASE_URL)")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("draft", *debugSleep)

	cfgDB := configStoreDSN(*configPath)
	dbPathVal := resolveDBPath(*dbPath, cfgDB, *dbForce, "")
	if dbPathVal == "" {
		flags.Usage()
		os.Exit(2)
	}

	if *status {
		if *jobID == "" {
			flags.Usage()
			os.Exit(2)
		}
		svc, err := service.NewService(service.WithDSN(dbPathVal))
		if err != nil {
			log.Fatalf("service init: %v", err)
		}
		defer func() { _ = svc.Close() }()
		result, err := svc.DraftStatus(ctx, &service.DraftStatusRequest{DBPath: dbPathVal, JobID: *jobID})
		if err != nil {
			log.Fatalf("draft status: %v", err)
		}
		printDraft(result)
		return
	}

	if *corpus == "" || (*topic == "" && *jobID == "") {
		flags.Usage()
		os.Exit(2)
	}

	emb, err := selectEmbedder(*embedderName, *apiKey, *model, *ollamaBaseURL)
	if err != nil {
		log.Fatalf("embedder: %v", err)
	}
	gen, err := selectGenerator(*generatorName, *apiKey, *genModel, *ollamaBaseURL)
	if err != nil {
		log.Fatalf("generator: %v", err)
	}
	svc, err := service.NewService(service.WithDSN(dbPathVal), service.WithEmbedder(emb), service.WithGenerator(gen))
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	defer func() { _ = svc.Close() }()

	result, err := svc.Draft(ctx, &service.DraftRequest{
		DBPath:   dbPathVal,
		Corpus:   *corpus,
		Topic:    *topic,
		JobID:    *jobID,
		Embedder: emb,
		Logf:     log.Printf,
	})
	if err != nil {
		log.Fatalf("draft: %v", err)
	}
	printDraft(result)
}

func printDraft(result *service.DraftResult) {
	fmt.Printf("job=%s status=%s topic=%q\n", result.JobID, result.Status, result.Topic)
	for _, stage := range result.Stages {
		fmt.Printf("  stage=%s status=%s updated=%s\n", stage.Stage, stage.Status, stage.UpdatedAt)
	}
	if result.Article != "" {
		fmt.Printf("\n%s\n", result.Article)
	}
}

func corporaCmd(args []string) {
	flags := flag.NewFlagSet("corpora", flag.ExitOnError)
	dbPath := flags.String("db", "", "SQLite database path (required)")
	dbForce := flags.Bool("db-force", false, "force --db even when config has store dsn")
	configPath := flags.String("config", "", "config yaml with corpora (optional)")
	corpus := flags.String("corpus", "", "corpus name (optional)")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	cfgDB := configStoreDSN(*configPath)
	dbPathVal := resolveDBPath(*dbPath, cfgDB, *dbForce, "")
	if dbPathVal == "" {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("corpora", *debugSleep)

	svc, err := service.NewService(service.WithDSN(dbPathVal))
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	defer func() { _ = svc.Close() }()

	infos, err := svc.Corpora(ctx, service.CorporaRequest{DBPath: dbPathVal, Corpus: *corpus})
	if err != nil {
		log.Fatalf("corpora: %v", err)
	}
	for _, info := range infos {
		lastIdx := ""
		if info.LastIndexedAt.Valid {
			lastIdx = info.LastIndexedAt.String
		}
		avgLen := 0.0
		if info.AvgPassageLen.Valid {
			avgLen = info.AvgPassageLen.Float64
		}
		embeddingModelStr := ""
		if info.EmbeddingModel.Valid {
			embeddingModelStr = info.EmbeddingModel.String
		}
		fmt.Printf("corpus=%s path=%s scn=%d assets=%d active_assets=%d passages=%d active_passages=%d size=%d avg_passage_len=%.2f last_indexed=%s embedding_model=%s draft_jobs=%d\n",
			info.CorpusID, info.SourceURI, info.LastSCN, info.Assets, info.AssetsActive, info.Passages, info.PassagesActive, info.AssetsSize, avgLen, lastIdx, embeddingModelStr, info.DraftJobs)
	}
}

func adminCmd(args []string) {
	flags := flag.NewFlagSet("admin", flag.ExitOnError)
	dbPath := flags.String("db", "", "SQLite database path (required)")
	dbForce := flags.Bool("db-force", false, "force --db even when config has store dsn")
	corpus := flags.String("corpus", "", "corpus name (required)")
	configPath := flags.String("config", "", "config yaml with corpora (optional)")
	allCorpora := flags.Bool("all", false, "apply to all corpora in config (requires --config)")
	action := flags.String("action", "check", "action: check|prune|rebuild|rebuild-fts")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("admin", *debugSleep)

	corpora, cfgDB, err := service.ResolveCorpora(service.ResolveCorporaRequest{
		Corpus:      *corpus,
		ConfigPath:  *configPath,
		All:         *allCorpora,
		RequirePath: false,
	})
	if err != nil {
		log.Fatalf("resolve corpora: %v", err)
	}
	dbPathVal := resolveDBPath(*dbPath, cfgDB, *dbForce, "")
	if dbPathVal == "" {
		flags.Usage()
		os.Exit(2)
	}

	svc, err := service.NewService(service.WithDSN(dbPathVal))
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	defer func() { _ = svc.Close() }()

	results, err := svc.Admin(ctx, service.AdminRequest{
		DBPath:  dbPathVal,
		Corpora: corpora,
		Action:  *action,
		Logf:    log.Printf,
	})
	if err != nil {
		log.Fatalf("admin: %v", err)
	}
	for _, res := range results {
		if res.Action == "check" && res.Stats != nil {
			stats := res.Stats
			log.Printf("check corpus=%s passages=%d active=%d archived=%d assets=%d active=%d archived=%d orphan_passages=%d orphan_assets=%d missing_embeddings=%d missing_fts=%d",
				stats.CorpusID, stats.Passages, stats.PassagesActive, stats.PassagesArchived,
				stats.Assets, stats.AssetsActive, stats.AssetsArchived,
				stats.OrphanPassages, stats.OrphanAssets, stats.MissingEmbeddings, stats.MissingFTS)
			continue
		}
		if res.Details != "" {
			log.Printf("%s corpus=%s %s", res.Action, res.Corpus, res.Details)
			continue
		}
		log.Printf("%s corpus=%s", res.Action, res.Corpus)
	}
}

func resolveDBPath(flagDB, configDB string, force bool, fallback string) string {
	if force && flagDB != "" {
		return flagDB
	}
	if configDB != "" {
		return configDB
	}
	if flagDB != "" {
		return flagDB
	}
	return fallback
}

func configStoreDSN(configPath string) string {
	if configPath == "" {
		return ""
	}
	cfg, err := service.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg.Store.DSN
}

func selectEmbedder(name, apiKey, model, ollamaBaseURL string) (embeddings.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "simple":
		return service.NewSimpleEmbedder(64), nil
	case "ollama":
		if ollamaBaseURL == "" {
			ollamaBaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
		if model == "" {
			return nil, fmt.Errorf("ollama embedder requires --model")
		}
		return embollama.NewEmbedder(model, embollama.WithBaseURL(ollamaBaseURL)), nil
	case "", "openai":
		return embopenai.NewEmbedder(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", name)
	}
}

func selectGenerator(name, apiKey, model, ollamaBaseURL string) (llm.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return nil, nil
	case "ollama":
		if ollamaBaseURL == "" {
			ollamaBaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
		if model == "" {
			return nil, fmt.Errorf("ollama generator requires --gen-model")
		}
		return llmollama.NewClient(model, llmollama.WithBaseURL(ollamaBaseURL)), nil
	case "", "openai":
		return llmopenai.NewClient(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
}

func progressPrinter(enabled bool) func(corpus string, current, total int, path string, tokens int) {
	if !enabled {
		return nil
	}
	lastLen := 0
	return func(corpus string, current, total int, path string, tokens int) {
		if total == 0 {
			fmt.Fprintf(os.Stderr, "corpus=%s indexed=0\n", corpus)
			return
		}
		if path == "" {
			path = "-"
		}
		line := fmt.Sprintf("corpus=%s indexed %d/%d tokens=%d %s", corpus, current, total, tokens, path)
		if lastLen > len(line) {
			line = line + strings.Repeat(" ", lastLen-len(line))
		}
		lastLen = len(line)
		fmt.Fprintf(os.Stderr, "\r%s", line)
		if current == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func maybeDebugSleep(cmd string, seconds int) {
	if seconds <= 0 {
		seconds = debugSleepFromEnv()
	}
	if seconds <= 0 {
		return
	}
	log.Printf("debug: cmd=%s pid=%d sleep=%ds", cmd, os.Getpid(), seconds)
	time.Sleep(time.Duration(seconds) * time.Second)
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}

func debugSleepFromEnv() int {
	val := strings.TrimSpace(os.Getenv("VAIDYA_DEBUG_SLEEP"))
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
