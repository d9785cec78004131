package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/backend"
	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	"finanzas/internal/log"
)

func main() {
	cfg, logger := cli.Init(log.ComponentApp)
	ctx := context.Background()

	logger.InfoContext(ctx, "Starting finanzas",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"profit_mode", cfg.ProfitMode)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create backend", log.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, res.Backend, logger)

	shutdownCtx, done := cli.GracefulShutdown(logger, 15*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", log.FieldError, err)
		}
	})

	logger.InfoContext(ctx, "Server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", log.FieldError, err)
		res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	res.Cleanup()
	logger.InfoContext(ctx, "Server stopped")
}
