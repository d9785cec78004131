package worker

import (
	"context"
	"log/slog"
	"time"
)

// Every runs fn immediately and then on every tick of interval until ctx is
// done. Errors from fn are logged; the loop keeps going.
func Every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Loop started", "loop", name, "interval", interval)

	run := func() {
		start := time.Now()
		if err := fn(ctx); err != nil {
			slog.ErrorContext(ctx, "Loop iteration failed", "loop", name, "error", err)
			return
		}
		slog.DebugContext(ctx, "Loop iteration done", "loop", name, "duration", time.Since(start))
	}

	// Process immediately on startup
	run()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Loop stopped", "loop", name)
			return nil
		case <-ticker.C:
			run()
		}
	}
}
