// Package api exposes the analyzer over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/clausewatch/internal/analyzer"
	"github.com/ppiankov/clausewatch/internal/model"
)

// Server is the HTTP API server
type Server struct {
	router   chi.Router
	analyzer *analyzer.Analyzer
	log      *slog.Logger
	cfg      model.ServerConfig
	workers  int
	filter   model.Filter
}

// NewServer creates the server around an analyzer. cfg supplies the upload
// limit and the default match filter.
func NewServer(a *analyzer.Analyzer, log *slog.Logger, cfg *model.Config) *Server {
	s := &Server{
		analyzer: a,
		log:      log,
		cfg:      cfg.Server,
		workers:  cfg.Concurrency.MatchWorkers,
		filter:   cfg.FilterSpec(),
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

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rules", s.handleRules)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/upload", s.handleAnalyzeUpload)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"catalog_version": s.analyzer.Catalog().Version(),
	})
}
