package main

import (
	"context"
	"os"
	"time"

	"finanzas/internal/backend"
	"finanzas/internal/cli"
	"finanzas/internal/log"
	"finanzas/internal/worker"
)

func main() {
	cfg, logger := cli.Init(log.ComponentScheduler)
	ctx := context.Background()

	logger.InfoContext(ctx, "Starting payments-scheduler",
		"backend", cfg.DataBackend,
		"interval", cfg.SchedulerInterval)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()
	payments := res.Backend.Payments

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	_ = worker.Every(runCtx, "scheduler", cfg.SchedulerInterval, func(ctx context.Context) error {
		result, err := payments.ProcessScheduled(ctx, time.Now())
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Scheduled payments processed",
			"checked", result.Checked,
			"completed", result.Completed,
			"scheduled", result.Scheduled,
			"failed", result.Failed)
		return nil
	})

	cli.WaitForShutdown(runCtx, done)
	logger.InfoContext(ctx, "Scheduler stopped")
}
