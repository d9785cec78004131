// Package cli provides common CLI initialization utilities.
// This package consolidates the startup and shutdown patterns shared by
// cmd/finanzas, cmd/finanzas-worker and cmd/payments-scheduler.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finanzas/internal/config"
	"finanzas/internal/log"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL and sets
// it as the default logger.
func SetupLogger(level, component string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	cfg := log.DefaultConfig()
	cfg.Level = lvl
	cfg.Component = component

	logger := log.New(cfg)
	log.SetDefault(logger)
	if err != nil {
		logger.WarnContext(context.Background(), "Falling back to info level", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger := SetupLogger("info", log.ComponentApp)
		logger.ErrorContext(context.Background(), "Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Init runs the shared startup sequence: .env, config, logger.
func Init(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := LoadAndValidateConfig()
	return cfg, SetupLogger(cfg.LogLevel, component)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM after cleanup has
// run; the channel is closed once shutdown is complete or timeout elapsed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.InfoContext(ctx, "Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.WarnContext(shutdownCtx, "Shutdown timeout reached")
		case <-finished:
			logger.InfoContext(shutdownCtx, "Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
