// Package httpserver provides the REST API for the research assistant
// service: paper retrieval, topic ingestion, and the LLM-backed agents.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/paperdesk/research-assistant/internal/assistant"
	"github.com/paperdesk/research-assistant/internal/database"
	"github.com/paperdesk/research-assistant/internal/domain"
	"github.com/paperdesk/research-assistant/internal/ingest"
	"github.com/paperdesk/research-assistant/internal/repository"
)

// QuestionAnswerer answers a question about a single paper.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, paper *domain.Paper, question string) (string, error)
}

// FutureWorkGenerator suggests research directions for a single paper.
type FutureWorkGenerator interface {
	GenerateFutureWork(ctx context.Context, paper *domain.Paper) (string, error)
}

// Summarizer produces summaries over a set of papers.
type Summarizer interface {
	SummarizeFindings(ctx context.Context, papers []*domain.Paper) (string, error)
	FutureWorksFromYear(ctx context.Context, papers []*domain.Paper) (string, error)
	ExtractKeyPoints(ctx context.Context, papers []*domain.Paper) ([]assistant.KeyPoints, error)
}

// TopicIngestor runs a topic search and stores the discovered papers.
type TopicIngestor interface {
	Run(ctx context.Context, topic string, maxResults int) (*ingest.Result, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router           chi.Router
	httpServer       *http.Server
	papers           repository.PaperRepository
	ingestor         TopicIngestor
	qna              QuestionAnswerer
	futureWorks      FutureWorkGenerator
	summarizer       Summarizer
	db               *database.DB
	validate         *validator.Validate
	logger           zerolog.Logger
	ingestMaxResults int
}

// DefaultIngestMaxResults caps an ingest run when neither the request nor
// the configuration sets a limit.
const DefaultIngestMaxResults = 500

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// IngestMaxResults caps an ingest run whose request omits max_results.
	// Zero means DefaultIngestMaxResults.
	IngestMaxResults int
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	papers repository.PaperRepository,
	ingestor TopicIngestor,
	qna QuestionAnswerer,
	futureWorks FutureWorkGenerator,
	summarizer Summarizer,
	db *database.DB,
	logger zerolog.Logger,
) *Server {
	if cfg.IngestMaxResults <= 0 {
		cfg.IngestMaxResults = DefaultIngestMaxResults
	}

	s := &Server{
		papers:           papers,
		ingestor:         ingestor,
		qna:              qna,
		futureWorks:      futureWorks,
		summarizer:       summarizer,
		db:               db,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		logger:           logger.With().Str("component", "http-server").Logger(),
		ingestMaxResults: cfg.IngestMaxResults,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/papers", s.listPapersByYear)
		r.Get("/papers/{paperID}", s.getPaper)
		r.Post("/papers/{paperID}/answer", s.answerQuestion)
		r.Post("/papers/{paperID}/future-works", s.generateFutureWork)

		r.Post("/ingest", s.ingestTopic)

		r.Route("/years/{year}", func(r chi.Router) {
			r.Post("/summary", s.summarizeYear)
			r.Post("/future-works", s.futureWorksForYear)
			r.Post("/key-points", s.keyPointsForYear)
		})
	})

	return r
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler reports whether the service can serve traffic.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}
