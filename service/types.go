package service

import (
	"database/sql"

	"github.com/vaidya-ai/vaidya/embeddings"
	"github.com/vaidya-ai/vaidya/llm"
	"github.com/vaidya-ai/vaidya/safety"
)

// CorpusSpec defines a corpus root with optional filters.
type CorpusSpec struct {
	Name         string
	Path         string
	Include      []string
	Exclude      []string
	MaxSizeBytes int64
}

// ResolveCorporaRequest specifies how corpus specs should be resolved.
type ResolveCorporaRequest struct {
	Corpus       string
	CorpusPath   string
	ConfigPath   string
	All          bool
	RequirePath  bool
	Include      []string
	Exclude      []string
	MaxSizeBytes int64
}

// IngestRequest defines inputs for corpus ingestion.
type IngestRequest struct {
	DBPath      string
	Corpora     []CorpusSpec
	Embedder    embeddings.Embedder
	Model       string
	SectionSize int
	BatchSize   int
	Prune       bool
	Logf        func(format string, args ...any)
	Progress    func(corpus string, current, total int, path string, tokens int)
}

// SearchMode selects the retrieval strategy.
type SearchMode string

const (
	// SearchHybrid fuses vector and keyword scores (default).
	SearchHybrid SearchMode = "hybrid"
	// SearchVector uses embedding similarity only.
	SearchVector SearchMode = "vector"
	// SearchKeyword uses full-text ranking only.
	SearchKeyword SearchMode = "keyword"
)

// SearchRequest defines inputs for passage retrieval.
type SearchRequest struct {
	DBPath        string
	Corpus        string
	Query         string
	Mode          SearchMode
	Embedder      embeddings.Embedder
	Model         string
	Limit         int
	MinScore      float64
	VectorWeight  float64
	KeywordWeight float64
}

// SearchResult describes a matched passage.
type SearchResult struct {
	ID           string
	DocID        string
	SectionID    string
	Title        string
	Score        float64
	VectorScore  float64
	KeywordScore float64
	Content      string
	Meta         string
	Path         string
}

// Citation is one entry of an answer's source ledger.
type Citation struct {
	Ref       int     `json:"ref"`
	DocID     string  `json:"doc_id"`
	SectionID string  `json:"section_id"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}

// AskRequest defines inputs for a question-answering call.
type AskRequest struct {
	DBPath          string
	Corpus          string
	Question        string
	Limit           int
	MinScore        float64
	MaxContextChars int
	Embedder        embeddings.Embedder
	Generator       llm.Generator
	Model           string
	Temperature     float64
	Logf            func(format string, args ...any)
}

// AskResponse carries the answer plus its citations and safety outcome.
type AskResponse struct {
	Answer     string            `json:"answer"`
	Citations  []Citation        `json:"citations,omitempty"`
	Safety     safety.Assessment `json:"safety"`
	Notice     string            `json:"notice,omitempty"`
	Disclaimer string            `json:"disclaimer"`
	Model      string            `json:"model,omitempty"`
	Retrieved  int               `json:"retrieved"`
	Answered   bool              `json:"answered"`
}

// DraftRequest defines inputs for the article drafting pipeline.
type DraftRequest struct {
	DBPath       string
	Corpus       string
	Topic        string
	JobID        string
	Questions    int
	SectionLimit int
	Embedder     embeddings.Embedder
	Generator    llm.Generator
	Logf         func(format string, args ...any)
}

// StageInfo summarizes one pipeline stage of a draft job.
type StageInfo struct {
	Stage     string `json:"stage"`
	Seq       int    `json:"seq"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// DraftResult reports the pipeline outcome for a draft job.
type DraftResult struct {
	JobID     string      `json:"job_id"`
	Topic     string      `json:"topic"`
	Status    string      `json:"status"`
	Article   string      `json:"article,omitempty"`
	Citations []Citation  `json:"citations,omitempty"`
	Stages    []StageInfo `json:"stages"`
}

// DraftStatusRequest identifies a draft job for status queries.
type DraftStatusRequest struct {
	DBPath string
	JobID  string
}

// CorporaRequest defines inputs for corpus summary queries.
type CorporaRequest struct {
	DBPath string
	Corpus string
}

// CorpusInfo describes a corpus summary row.
type CorpusInfo struct {
	CorpusID       string
	SourceURI      string
	LastSCN        int64
	LastIndexedAt  sql.NullString
	Assets         int64
	AssetsArchived int64
	AssetsActive   int64
	AssetsSize     int64
	LastAssetMod   sql.NullString
	LastAssetMD5   sql.NullString
	Passages       int64
	PassagesArch   int64
	PassagesActive int64
	AvgPassageLen  sql.NullFloat64
	LastPassageSCN sql.NullInt64
	EmbeddingModel sql.NullString
	DraftJobs      int64
}

// AdminRequest defines inputs for admin operations.
type AdminRequest struct {
	DBPath  string
	Corpora []CorpusSpec
	Action  string
	Logf    func(format string, args ...any)
}

// AdminResult captures per-corpus admin outcomes.
type AdminResult struct {
	Corpus  string
	Action  string
	Details string
	Stats   *IntegrityStats
}

// IntegrityStats summarizes consistency checks.
type IntegrityStats struct {
	CorpusID          string
	Passages          int64
	PassagesArchived  int64
	PassagesActive    int64
	Assets            int64
	AssetsArchived    int64
	AssetsActive      int64
	OrphanPassages    int64
	OrphanAssets      int64
	MissingEmbeddings int64
	MissingFTS        int64
}
