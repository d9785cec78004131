package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/services"
)

// Recalculator is the part of services.ProfitRecalculator the worker needs.
type Recalculator interface {
	Recalculate(ctx context.Context) (core.Summary, error)
	Verify(ctx context.Context) (services.Drift, error)
}

// RecalcWorker rebuilds the profit summary on request and repairs drift.
type RecalcWorker struct {
	profits   Recalculator
	publisher services.Publisher
}

// NewRecalcWorker wires the worker. publisher may be nil.
func NewRecalcWorker(profits Recalculator, publisher services.Publisher) *RecalcWorker {
	return &RecalcWorker{
		profits:   profits,
		publisher: publisher,
	}
}

// HandleRecalculate processes a single recalculation request from AMQP.
func (w *RecalcWorker) HandleRecalculate(ctx context.Context, req *amqp.RecalculateRequest) error {
	slog.InfoContext(ctx, "Processing recalculation request",
		"reason", req.Reason,
		"kind", req.Kind,
		"entity_id", req.EntityID,
		"requested_at", req.Timestamp)

	summary, err := w.profits.Recalculate(ctx)
	if err != nil {
		return fmt.Errorf("recalculate profits: %w", err)
	}

	w.publish(ctx, summary)
	return nil
}

// VerifyAndRepair compares the stored summary with a full rescan and
// recalculates when they differ. It reports whether a repair ran.
func (w *RecalcWorker) VerifyAndRepair(ctx context.Context) (bool, error) {
	drift, err := w.profits.Verify(ctx)
	if err != nil {
		return false, err
	}
	if !drift.Drifted() {
		slog.DebugContext(ctx, "Profit summary verified", "version", drift.Stored.Version)
		return false, nil
	}

	slog.WarnContext(ctx, "Profit summary drifted, repairing",
		"stored_profit", drift.Stored.Profit.String(),
		"actual_profit", drift.Actual.Profit.String(),
		"version", drift.Stored.Version)

	summary, err := w.profits.Recalculate(ctx)
	if err != nil {
		return false, fmt.Errorf("repair profits: %w", err)
	}
	w.publish(ctx, summary)
	return true, nil
}

func (w *RecalcWorker) publish(ctx context.Context, summary core.Summary) {
	if w.publisher == nil {
		return
	}
	evt := amqp.NewLedgerEvent(amqp.EventProfitsRecalculated, "", "", summary)
	if err := w.publisher.PublishLedgerEvent(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recalculation event", "error", err)
	}
}
