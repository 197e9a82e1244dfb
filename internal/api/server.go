package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/dartgest/internal/config"
	"github.com/dgallion1/dartgest/internal/ledger"
	"github.com/dgallion1/dartgest/internal/parser"
	"github.com/dgallion1/dartgest/internal/pipeline"
	"github.com/dgallion1/dartgest/internal/search"
)

// FailureLister reads the failure ledger.
type FailureLister interface {
	List(ctx context.Context, limit int) ([]ledger.Entry, error)
}

// Searcher runs full-text queries against the indexed records.
type Searcher interface {
	Search(ctx context.Context, indices []string, query string, size int) (search.SearchResult, error)
}

// Server is the HTTP API server for dartgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	failures     FailureLister
	source       pipeline.DocumentSource
	searcher     Searcher
	indices      []string
	parserOpts   parser.Options
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. failures, source and
// searcher may be nil; the routes that need them then answer 503. indices
// are the searchable index names.
func NewServer(orch *pipeline.Orchestrator, failures FailureLister, source pipeline.DocumentSource, searcher Searcher, indices []string, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		failures:     failures,
		source:       source,
		searcher:     searcher,
		indices:      indices,
		parserOpts:   pipeline.ParserOptions(cfg),
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Post("/api/ingest/dart/{receiptNo}", s.handleDartIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)

		r.Get("/api/search", s.handleSearch)
		r.Post("/api/parse", s.handleParse)
		r.Get("/api/failures", s.handleFailures)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
