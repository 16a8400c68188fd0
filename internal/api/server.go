package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/manualqa/internal/config"
	"github.com/dgallion1/manualqa/internal/llm"
	"github.com/dgallion1/manualqa/internal/matcher"
	"github.com/dgallion1/manualqa/internal/pipeline"
	"github.com/dgallion1/manualqa/internal/rag"
	"github.com/dgallion1/manualqa/internal/vectorstore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for manualqa.
type Server struct {
	router       chi.Router
	engine       *rag.Engine
	orchestrator *pipeline.Orchestrator
	matcher      *matcher.Matcher
	store        vectorstore.Store
	llm          *llm.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(engine *rag.Engine, orch *pipeline.Orchestrator, m *matcher.Matcher, store vectorstore.Store, llmClient *llm.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		engine:       engine,
		orchestrator: orch,
		matcher:      m,
		store:        store,
		llm:          llmClient,
		log:          log,
		cfg:          cfg,
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
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints. Auth is a no-op when no key is configured,
	// for local single-user deployments.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.Server.APIKey, s.log))

		r.Post("/api/ask", s.handleAsk)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)

		r.Get("/api/match", s.handleMatch)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{source}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
