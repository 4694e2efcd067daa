package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/estateops/estate-backend/internal/api/handlers"
	"github.com/estateops/estate-backend/internal/api/middleware"
	"github.com/estateops/estate-backend/internal/application/importer"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	importer   *importer.Importer
	jobs       *importer.Service
}

// NewServer creates a new API server.
// If jobs is nil, background job endpoints will not be available and match
// and process requests are rejected.
func NewServer(cfg Config, repo storage.Repository, imp *importer.Importer, jobs *importer.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		repo:     repo,
		importer: imp,
		jobs:     jobs,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// CORS
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Statement imports
		importsHandler := handlers.NewImportsHandler(s.repo, s.importer, s.jobs)
		r.Post("/imports", importsHandler.Create)
		r.Get("/imports", importsHandler.List)
		r.Get("/imports/{id}", importsHandler.Get)
		r.Get("/imports/{id}/rows", importsHandler.ListRows)
		r.Post("/imports/{id}/rows/status", importsHandler.BatchRowStatus)
		r.Post("/imports/{id}/submit", importsHandler.Submit)
		r.Post("/imports/{id}/approve", importsHandler.Approve)
		r.Post("/imports/{id}/reject", importsHandler.Reject)

		// Row review
		rowsHandler := handlers.NewRowsHandler(s.repo, s.importer)
		r.Get("/rows/{id}", rowsHandler.Get)
		r.Post("/rows/{id}/match", rowsHandler.ManualMatch)
		r.Post("/rows/{id}/unmatch", rowsHandler.Unmatch)
		r.Post("/rows/{id}/skip", rowsHandler.Skip)

		// Residents
		residentsHandler := handlers.NewResidentsHandler(s.repo)
		r.Get("/residents", residentsHandler.List)
		r.Post("/residents", residentsHandler.Create)
		r.Get("/residents/{id}", residentsHandler.Get)
		r.Put("/residents/{id}", residentsHandler.Update)
		r.Get("/residents/{id}/payments", residentsHandler.Payments)

		// Houses
		housesHandler := handlers.NewHousesHandler(s.repo)
		r.Get("/houses", housesHandler.List)
		r.Post("/houses", housesHandler.Create)
		r.Post("/houses/{id}/residents", housesHandler.AssignResident)

		// Payment aliases
		aliasesHandler := handlers.NewAliasesHandler(s.repo)
		r.Get("/aliases", aliasesHandler.List)
		r.Post("/aliases", aliasesHandler.Create)
		r.Delete("/aliases/{id}", aliasesHandler.Delete)

		// Stats
		statsHandler := handlers.NewStatsHandler(s.repo)
		r.Get("/stats", statsHandler.Get)

		// Background jobs (matching and processing)
		if s.jobs != nil {
			jobsHandler := handlers.NewJobsHandler(s.jobs)
			r.Post("/imports/{id}/match", importsHandler.Match)
			r.Post("/imports/{id}/process", importsHandler.Process)
			r.Get("/jobs", jobsHandler.ListActive)
			r.Get("/jobs/{id}", jobsHandler.Get)
			r.Delete("/jobs/{id}", jobsHandler.Cancel)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
