/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the convocation engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (defaults, YAML file, environment)
  3. Build the zap logger
  4. Create API handler with the configured sheet source
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (default: $CONVOCACAO_CONFIG)
  -port    HTTP server port, overrides the configuration

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Flush the logger
  4. Exit

EXAMPLES:
  # Run with defaults
  ./server

  # Run with a config file on another port
  ./server -config=./config.yaml -port=3000

  # Read sheets through the API instead of the public export
  CONVOCACAO_SHEETS_SOURCE=api CONVOCACAO_SHEETS_API_KEY=... ./server

SEE ALSO:
  - config/config.go: Configuration fields and precedence
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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

	"go.uber.org/zap"

	"github.com/warp/convocation-engine/api"
	"github.com/warp/convocation-engine/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	defaults, err := cfg.SelectionDefaults()
	if err != nil {
		return err
	}

	// Initialize handler
	handler := api.NewHandler(api.Options{
		Defaults:       defaults,
		Logger:         logger,
		SheetSource:    cfg.Sheets.NewSource,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	routerOpts := api.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins}
	if cfg.RateLimit.Enabled {
		routerOpts.RateLimit = api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, routerOpts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("mission_mode", string(defaults.MissionMode)),
			zap.Int("num_vagas", defaults.NumVagas),
			zap.String("sheet_source", cfg.Sheets.Source),
			zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal or a listen failure
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
