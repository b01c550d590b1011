package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihandlers "github.com/information-sharing-networks/doc-verifier/internal/api/handlers"
	"github.com/information-sharing-networks/doc-verifier/internal/config"
	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
	"github.com/information-sharing-networks/doc-verifier/internal/metrics"
	"github.com/information-sharing-networks/doc-verifier/internal/server/handlers"
	"github.com/information-sharing-networks/doc-verifier/internal/server/middleware"
	"github.com/information-sharing-networks/doc-verifier/internal/storage"
	"github.com/information-sharing-networks/doc-verifier/internal/version"
)

// Dependencies are the services the server routes requests to.
type Dependencies struct {
	Service *docverify.Service
	Store   storage.Store

	// Metrics and Gatherer back the /metrics endpoint. Both may be nil.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// Receipts is nil when no receipt signing key is configured
	Receipts *crypto.ReceiptSigner
}

type Server struct {
	config *config.ServerEnvironment
	logger *slog.Logger
	router *chi.Mux
	deps   Dependencies
}

func NewServer(cfg *config.ServerEnvironment, logger *slog.Logger, deps Dependencies) (*Server, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("a verification service is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("a document store is required")
	}

	server := &Server{
		config: cfg,
		logger: logger,
		router: chi.NewRouter(),
		deps:   deps,
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// Router returns the configured router (used by tests).
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(middleware.Metrics(s.deps.Metrics))
	s.router.Use(chimiddleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		s.router.Use(chimiddleware.Timeout(s.config.RequestTimeout))
	}
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
	s.router.Use(middleware.CORS(middleware.NewOriginPolicy(s.config.AllowedOrigins), s.logger))
}

func (s *Server) registerRoutes() {
	buildInfo := version.Get()

	s.router.Get("/health/live", handlers.HandleHealth)
	s.router.Get("/health/ready", handlers.HandleReadiness(s.deps.Store))
	s.router.Get("/version", handlers.HandleVersion(buildInfo.Version, buildInfo.BuildDate, strings.Join(s.deps.Service.Networks().Names(), ",")))

	if s.deps.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	receiptKeys := handlers.HandleJWKS(nil)
	if s.deps.Receipts != nil {
		receiptKeys = handlers.HandleJWKS(s.deps.Receipts.PublicKeySet())
	}
	s.router.Get("/.well-known/jwks.json", receiptKeys)

	documentHandler := apihandlers.NewDocumentHandler(s.deps.Service, s.deps.Store, s.config.StorageTTL, s.deps.Receipts)

	apiKeyEnvVar := s.config.APIKeyEnvVar
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
		r.Use(middleware.CheckAPIKey(func() string { return os.Getenv(apiKeyEnvVar) }))
		r.Use(middleware.RequestSizeLimit(s.config.MaxRequestSize))

		r.Post("/verify", documentHandler.HandleVerify)
		r.Post("/storage", documentHandler.HandleStore)
		r.Post("/storage/queue", documentHandler.HandleQueue)
		r.Post("/storage/{id}", documentHandler.HandleStoreQueued)
		r.Get("/storage/{id}", documentHandler.HandleGet)
	})
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr),
			slog.String("storage", s.config.StorageBackend),
			slog.Bool("receipts", s.deps.Receipts != nil))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// StorageShutdown closes the document store.
func (s *Server) StorageShutdown() {
	if err := s.deps.Store.Close(); err != nil {
		s.logger.Warn("failed to close document store", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("document store closed")
}
