package app

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

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/andestraining/sence-sync-server/internal/api"
	v0 "github.com/andestraining/sence-sync-server/internal/api/v0"
	"github.com/andestraining/sence-sync-server/internal/config"
	"github.com/andestraining/sence-sync-server/internal/courses"
	"github.com/andestraining/sence-sync-server/internal/db"
	"github.com/andestraining/sence-sync-server/internal/declarations"
	"github.com/andestraining/sence-sync-server/internal/reconcile"
	"github.com/andestraining/sence-sync-server/internal/scraper"
	"github.com/andestraining/sence-sync-server/internal/session"
	"github.com/andestraining/sence-sync-server/internal/status"
	syncmgr "github.com/andestraining/sence-sync-server/internal/sync"
	"github.com/andestraining/sence-sync-server/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sync API server",
	Long: `Start the SENCE sync API server.

The server requires a configuration file (--config) that specifies:
- The scraping automation endpoint
- Database connection parameters
- Session TTL and sweep interval`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	// Callback requests wait on a live remote scraping run, so the write
	// timeout has to outlast the scraper timeout.
	serverWriteTimeout = 5 * time.Minute
	serverIdleTimeout  = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", configPath, "scraperEndpoint", cfg.Scraper.Endpoint)

	// Stores: database-backed when configured, in-memory otherwise. The
	// in-memory mode exists for local development and the extension's
	// test flows; declaration data does not survive a restart there.
	var courseStore courses.Store
	var declarationStore declarations.Store
	if cfg.Database != nil {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		courseStore = courses.NewDBStore(pool)
		declarationStore = declarations.NewDBStore(pool)
	} else {
		slog.Warn("No database configured, using in-memory stores")
		courseStore = courses.NewInMemoryStore()
		declarationStore = declarations.NewInMemoryStore()
	}

	sessions := session.NewStore(session.WithTTL(cfg.GetSessionTTL()))
	tracker := status.NewTracker()

	// Instruments register against the global provider; without an
	// exporter configured they are no-ops.
	metrics, err := telemetry.NewSyncMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}
	httpMetrics, err := telemetry.NewHTTPMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	sweeper := session.NewSweeper(sessions, cfg.GetSweepInterval(),
		session.WithSweepCallback(func(purged int) {
			metrics.RecordSessionsExpired(context.Background(), purged)
		}))
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sweeper.Start(sweepCtx)

	client := scraper.NewDefaultClient(cfg.Scraper.Endpoint, cfg.GetScraperTimeout())
	engine := reconcile.NewEngine(declarationStore)
	manager := syncmgr.NewManager(sessions, client, engine, tracker, metrics, cfg.GetScraperTimeout())

	routes := v0.NewRoutes(sessions, manager, tracker, courseStore, declarationStore,
		cfg.Scraper.HandoffURL)

	router := api.NewServer(routes,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			httpMetrics.Middleware,
			api.LoggingMiddleware,
		),
	)

	address := cfg.GetAddress()
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		slog.Info("Server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server shutdown complete")
	return nil
}
