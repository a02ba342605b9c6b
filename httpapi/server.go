package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaidya-ai/vaidya/embeddings"
	"github.com/vaidya-ai/vaidya/llm"
	"github.com/vaidya-ai/vaidya/service"
)

// Server is the HTTP API surface over the assistant service.
type Server struct {
	router    chi.Router
	service   *service.Service
	dbPath    string
	embedder  embeddings.Embedder
	generator llm.Generator
	log       *slog.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service, dbPath string, embedder embeddings.Embedder, generator llm.Generator, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		service:   svc,
		dbPath:    dbPath,
		embedder:  embedder,
		generator: generator,
		log:       log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Get("/search", s.handleSearch)
		r.Post("/drafts", s.handleCreateDraft)
		r.Get("/drafts/{jobID}", s.handleDraftStatus)
		r.Get("/corpora", s.handleCorpora)
	})

	s.router = r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type askPayload struct {
	Corpus   string `json:"corpus"`
	Question string `json:"question"`
	Limit    int    `json:"limit,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload askPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Corpus == "" || payload.Question == "" {
		jsonError(w, "corpus and question are required", http.StatusBadRequest)
		return
	}
	resp, err := s.service.Ask(r.Context(), &service.AskRequest{
		DBPath:    s.dbPath,
		Corpus:    payload.Corpus,
		Question:  payload.Question,
		Limit:     payload.Limit,
		Embedder:  s.embedder,
		Generator: s.generator,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	corpus := q.Get("corpus")
	query := q.Get("q")
	if corpus == "" || query == "" {
		jsonError(w, "corpus and q query parameters are required", http.StatusBadRequest)
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	results, err := s.service.Search(r.Context(), service.SearchRequest{
		DBPath:   s.dbPath,
		Corpus:   corpus,
		Query:    query,
		Mode:     service.SearchMode(q.Get("mode")),
		Embedder: s.embedder,
		Limit:    limit,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type draftPayload struct {
	Corpus string `json:"corpus"`
	Topic  string `json:"topic,omitempty"`
	JobID  string `json:"job_id,omitempty"`
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var payload draftPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Corpus == "" {
		jsonError(w, "corpus is required", http.StatusBadRequest)
		return
	}
	result, err := s.service.Draft(r.Context(), &service.DraftRequest{
		DBPath:    s.dbPath,
		Corpus:    payload.Corpus,
		Topic:     payload.Topic,
		JobID:     payload.JobID,
		Embedder:  s.embedder,
		Generator: s.generator,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDraftStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	result, err := s.service.DraftStatus(r.Context(), &service.DraftStatusRequest{DBPath: s.dbPath, JobID: jobID})
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCorpora(w http.ResponseWriter, r *http.Request) {
	infos, err := s.service.Corpora(r.Context(), service.CorporaRequest{DBPath: s.dbPath, Corpus: r.URL.Query().Get("corpus")})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"corpora": infos})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
