package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/ingest"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
	"sales-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// initialDataset picks what new sessions start with: generated data in
// synthetic mode, the SEED_CSV file if one is configured, or nothing.
func initialDataset(ctx context.Context, cfg config.DatasetConfig) (*models.Dataset, error) {
	switch {
	case cfg.Mode == config.ModeSynthetic:
		return dataset.Synthetic(cfg.SyntheticSeed), nil
	case cfg.SeedCSV != "":
		raw, err := os.ReadFile(cfg.SeedCSV)
		if err != nil {
			return nil, fmt.Errorf("read seed csv: %w", err)
		}
		ctx, cancel := context.WithTimeout(ctx, cfg.IngestTimeout)
		defer cancel()
		ds, err := ingest.Ingest(ctx, filepath.Base(cfg.SeedCSV), raw)
		if err != nil {
			return nil, fmt.Errorf("ingest seed csv: %w", err)
		}
		if ds.Len() == 0 {
			return nil, fmt.Errorf("seed csv %s: %w", cfg.SeedCSV, services.ErrEmptyDataset)
		}
		return ds, nil
	default:
		return nil, nil
	}
}

func newHandler(cfg *config.Config, logger *slog.Logger, dashboard *services.Dashboard, rateLimiter *middleware.RateLimiter) http.Handler {
	srv := server.NewServer(dashboard, cfg.Dataset.UploadMaxBytes, logger, &server.TemplateHandlers{
		Dashboard: handleDashboard,
	})

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Session(cfg.Security, cfg.Session.TTL),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"dataset_mode", cfg.Dataset.Mode,
		"session_isolation", cfg.Session.Isolated,
	)

	start := time.Now()
	initial, err := initialDataset(context.Background(), cfg.Dataset)
	if err != nil {
		logger.Error("failed to load initial dataset", "error", err)
		os.Exit(1)
	}
	if initial != nil {
		logger.Info("initial dataset loaded",
			"dataset", initial.Name(),
			"rows", initial.Len(),
			"duration", time.Since(start),
		)
	}

	sessions := session.NewRegistry(session.Config{
		Isolated: cfg.Session.Isolated,
		TTL:      cfg.Session.TTL,
		MaxSize:  cfg.Session.MaxSessions,
	}, func() *models.Dataset { return initial }, logger)

	dashboard := services.NewDashboard(sessions, services.Options{
		IngestTimeout: cfg.Dataset.IngestTimeout,
	}, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(sessions)
	cacheManager.Register(rateLimiter)
	cacheManager.StartCleanup(cfg.Session.CleanupInterval)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, logger, dashboard, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("cache-cleanup", func(ctx context.Context) error {
		cacheManager.Stop()
		logger.Info("cache cleanup stopped", "stats", dashboard.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
