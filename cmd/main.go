package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/acrobaticz/bulkscan/internal/adapters/http/api"
	"github.com/acrobaticz/bulkscan/internal/adapters/inventory"
	"github.com/acrobaticz/bulkscan/internal/app"
	"github.com/acrobaticz/bulkscan/internal/config"
	"github.com/acrobaticz/bulkscan/internal/submit"
	"github.com/acrobaticz/bulkscan/pkg/logger"
	"github.com/acrobaticz/bulkscan/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	inv := inventory.NewClient(cfg.InventoryBaseURL, inventory.WithLogger(log))

	// Create and start the session controller with configuration options
	svc := app.New(
		app.WithLogger(log),
		app.WithEndpoint(inv),
		app.WithRetryPolicy(submit.RetryPolicy{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: time.Duration(cfg.InitialDelayMS) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.MaxDelayMS) * time.Millisecond,
			Multiplier:   cfg.BackoffMultiplier,
		}),
		app.WithCaptureTuning(cfg.TargetFPS, time.Duration(cfg.WarmupMS)*time.Millisecond),
		app.WithRecentLimit(cfg.RecentItemsLimit),
		app.WithCloseGrace(time.Duration(cfg.CloseGraceMS)*time.Millisecond),
		app.WithOfflineQueue(cfg.OfflineQueue),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP router and routes.
	router := mux.NewRouter()
	apiServer := api.NewServer(svc)
	apiServer.Register(ctx, router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if active, ok := stats["activeSessions"].(int); ok {
		metrics.UpdateActiveSessions(active)
	}
	if depth, ok := stats["syncQueueDepth"].(int); ok {
		metrics.UpdateSyncQueueDepth(depth)
	}
}
