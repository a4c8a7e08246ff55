// Package server wires the handlers, middleware and routes, and owns the
// process lifecycle.
//
// DEPENDENCY FLOW:
//
//	config.Config ──▶ New()
//	  store (sqlite | postgres) ──▶ InteractionService, InstallationService
//	  AppTokenService ──▶ Installations ──▶ github.Client (check runs)
//	  services + github.Client + metrics ──▶ WebhookService ──▶ WebhookHandler
//
// This is the composition root: every dependency is built here and handed
// down, so nothing below this package reads the environment.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/commit-karma/internal/auth"
	"github.com/sakif/commit-karma/internal/config"
	"github.com/sakif/commit-karma/internal/github"
	"github.com/sakif/commit-karma/internal/handler"
	"github.com/sakif/commit-karma/internal/metrics"
	"github.com/sakif/commit-karma/internal/middleware"
	"github.com/sakif/commit-karma/internal/repository"
	pgRepo "github.com/sakif/commit-karma/internal/repository/postgres"
	sqliteRepo "github.com/sakif/commit-karma/internal/repository/sqlite"
	"github.com/sakif/commit-karma/internal/service"
)

// outboundTimeout bounds each call to the GitHub API.
const outboundTimeout = 15 * time.Second

// Server represents the HTTP server and the resources it owns. The store is
// closed when Start returns.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    repository.Store
	registry *prometheus.Registry
}

// New opens the configured store and builds the GitHub App client.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewAppTokenService(cfg.AppID, cfg.PrivateKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating app token service: %w", err)
	}
	httpClient := &http.Client{Timeout: outboundTimeout}
	installations := auth.NewInstallations(tokens, cfg.APIURL, httpClient)
	checks := github.NewClient(cfg.APIURL, installations)

	return newServer(cfg, store, checks, logger), nil
}

// OpenStore opens the backend named by driver.
//
//	sqlite   → dbPath (":memory:" for an ephemeral store)
//	postgres → dsn
func OpenStore(ctx context.Context, driver, dbPath, dsn string) (repository.Store, error) {
	switch driver {
	case config.DriverSQLite:
		db, err := sqliteRepo.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return db, nil
	case config.DriverPostgres:
		db, err := pgRepo.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func newServer(cfg *config.Config, store repository.Store, checks service.CheckRunCreator, logger *slog.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		registry: registry,
	}
	s.setupRoutes(checks, metrics.New(registry))
	return s
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
// POST /{webhookPath}       → signature check, then webhook dispatch
// GET  /health              → liveness
// GET  /metrics             → Prometheus scrape
// GET  /api/karma/{userID}  → karma snapshot for one user
//
// MIDDLEWARE ORDER:
// RequestID must come before Logger so each log line carries the id.
// Recoverer sits inside Logger so a panic is logged as a 500.
func (s *Server) setupRoutes(checks service.CheckRunCreator, m *metrics.Metrics) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(m))
	s.router.Use(chimiddleware.Recoverer)

	s.router.NotFound(handler.HandleNotFound)
	s.router.MethodNotAllowed(handler.HandleMethodNotAllowed)

	interactions := service.NewInteractionService(s.store, s.logger)
	installations := service.NewInstallationService(s.store, s.logger)
	webhooks := service.NewWebhookService(interactions, installations, checks, m, s.logger)

	webhookHandler := handler.NewWebhookHandler(webhooks, s.logger)
	karmaHandler := handler.NewKarmaHandler(interactions, s.logger)

	s.router.Get("/health", handler.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	s.router.With(auth.RequireSignature(s.config.WebhookSecret, s.logger)).
		Post("/"+s.config.WebhookPath, webhookHandler.HandleWebhook)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/karma/{userID}", karmaHandler.HandleGet)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store. Start calls it on the way out.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT/SIGTERM or a listener error, then drains
// in-flight deliveries for up to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("webhook_path", "/"+s.config.WebhookPath),
			slog.String("driver", s.config.DBDriver),
			slog.Int64("app_id", s.config.AppID),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
