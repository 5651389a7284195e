/*
main.go - Application entry point

PURPOSE:
  Starts the fixed-asset register HTTP service. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load config (YAML, then .env, then environment)
  3. Build the zap logger at the configured level
  4. Open the SQLite store, seed demo data when asked and the store is empty
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (default: config.yaml, optional)
  -env     .env file (default: .env, optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Defaults: port 8080, ./immobilisations.db
  ./server

  # In-memory database with the demo register
  DB_PATH=":memory:" SEED_DEMO_DATA=true ./server

  # Fiscal year closing on June 30
  FISCAL_YEAR_END=06-30 ./server -config=/etc/immobilisations.yaml

SEE ALSO:
  - config/config.go: Settings and environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/api"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/config"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/depreciation"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/factory"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/store"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "YAML config file")
	envPath := flag.String("env", ".env", ".env file")
	flag.Parse()

	if err := run(*configPath, *envPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, _ := cfg.LogLevel()
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	cal, _ := cfg.Calendar()

	// Initialize store
	db, err := sqlite.New(cfg.Database.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.SeedDemoData {
		if err := seed(db, logger); err != nil {
			return err
		}
	}

	handler := api.NewHandler(db, depreciation.NewBuilder(cal), cfg.Reports.Workers, logger)
	router := api.NewRouter(handler, cfg.Server.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("database", cfg.Database.SQLitePath),
			zap.String("fiscal_year_end", cal.String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func seed(s store.Store, logger *zap.Logger) error {
	ds, err := factory.Seed()
	if err != nil {
		return fmt.Errorf("failed to read demo data: %w", err)
	}
	catalog, err := ds.Resolve()
	if err != nil {
		return fmt.Errorf("invalid demo data: %w", err)
	}

	seeded, err := store.SeedIfEmpty(context.Background(), s, catalog)
	if err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	if seeded {
		logger.Info("demo data loaded", zap.Int("assets", len(catalog.Assets)))
	}
	return nil
}
