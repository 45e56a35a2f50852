package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

const datasetLoadTimeout = 30 * time.Second

// app holds the services shared by every request.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	analytics *services.Analytics
	sessions  *session.Store
	limiter   *middleware.RateLimiter
	manager   *cache.Manager
	handler   http.Handler
}

// newApp loads the dataset once and wires the services around it. The
// dataset is read-only for the life of the process.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	loadCtx, cancel := context.WithTimeout(ctx, datasetLoadTimeout)
	defer cancel()

	start := time.Now()
	data, err := dataset.NewLoader(logger).Load(loadCtx, cfg.Dataset.Path)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", cfg.Dataset.Path, err)
	}
	logger.Info("dataset loaded successfully",
		"path", cfg.Dataset.Path,
		"records", len(data.Sales),
		"dropped", data.Stats.DroppedDate+data.Stats.DroppedInvalid,
		"duration", time.Since(start),
	)

	var metrics *observability.Metrics
	if cfg.Telemetry.MetricsEnabled {
		if metrics, err = observability.NewMetrics(cfg.Telemetry); err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		analytics: services.NewAnalytics(data, logger, metrics),
		sessions:  session.NewStore(cfg.Session),
		limiter:   middleware.NewRateLimiter(cfg.Security),
		manager:   cache.NewManager(logger),
	}

	exportCache := cache.NewLRUCache[[]byte](cfg.Export.CacheSize, cfg.Export.CacheTTL)
	a.manager.Register(exportCache)
	a.manager.Register(a.sessions)
	a.manager.Register(a.limiter)

	if err := a.registerGauges(data, exportCache); err != nil {
		return nil, err
	}

	a.handler = server.NewServer(server.Deps{
		Config:      cfg,
		Analytics:   a.analytics,
		Sessions:    a.sessions,
		Exporter:    export.NewExporter(exportCache, metrics, logger),
		Metrics:     metrics,
		RateLimiter: a.limiter,
		Logger:      logger,
	})
	return a, nil
}

func (a *app) registerGauges(data *dataset.Dataset, exportCache *cache.LRUCache[[]byte]) error {
	gauges := []struct {
		name, help string
		fn         func() float64
	}{
		{"sales_dataset_records", "Normalized records in the loaded dataset",
			func() float64 { return float64(len(data.Sales)) }},
		{"sales_dataset_dropped_records", "Source rows dropped while loading",
			func() float64 { return float64(data.Stats.DroppedDate + data.Stats.DroppedInvalid) }},
		{"sales_sessions", "Live dashboard sessions",
			func() float64 { return float64(a.sessions.Size()) }},
		{"sales_export_cache_entries", "Encoded exports held in memory",
			func() float64 { return float64(exportCache.Size()) }},
	}
	for _, g := range gauges {
		if err := a.metrics.RegisterGauge(g.name, g.help, g.fn); err != nil {
			return fmt.Errorf("register gauge %s: %w", g.name, err)
		}
	}
	return nil
}

// registerHooks stops background work once the HTTP server has drained.
func (a *app) registerHooks(gs *server.GracefulServer, shutdownTracing observability.ShutdownFunc) {
	gs.RegisterShutdownHook("cache-cleanup", func(ctx context.Context) error {
		a.manager.Stop()
		return nil
	})
	gs.RegisterShutdownHook("tracing", func(ctx context.Context) error {
		return shutdownTracing(ctx)
	})
	gs.RegisterShutdownHook("metrics", func(ctx context.Context) error {
		return a.metrics.Shutdown(ctx)
	})
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
		"version", cfg.Telemetry.ServiceVersion,
		"addr", cfg.Address(),
		"dataset", cfg.Dataset.Path,
	)

	shutdownTracing, err := observability.SetupTracing(cfg.Telemetry, os.Stderr)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	a.manager.StartCleanup(cfg.Session.CleanupInterval)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	a.registerHooks(gracefulServer, shutdownTracing)

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(context.Background()); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
