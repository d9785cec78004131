package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/backend"
	"finanzas/internal/cli"
	"finanzas/internal/log"
	"finanzas/internal/worker"
)

func main() {
	cfg, logger := cli.Init(log.ComponentWorker)
	ctx := context.Background()

	logger.InfoContext(ctx, "Starting finanzas-worker",
		"backend", cfg.DataBackend,
		"verify_interval", cfg.VerifyInterval)

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
	b := res.Backend

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	w := worker.NewRecalcWorker(b.Profits, b.Publisher())
	g, gctx := errgroup.WithContext(runCtx)

	if b.AMQP != nil {
		g.Go(func() error {
			return b.AMQP.ConsumeRecalculate(gctx, w.HandleRecalculate)
		})
	} else {
		logger.InfoContext(ctx, "AMQP disabled, only periodic verification will run")
	}

	g.Go(func() error {
		return worker.Every(gctx, "verify", cfg.VerifyInterval, func(ctx context.Context) error {
			_, err := w.VerifyAndRepair(ctx)
			return err
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Worker stopped with error", log.FieldError, err)
		res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.InfoContext(ctx, "Worker stopped")
}
