package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// ScheduledResult counts what one ProcessScheduled pass did.
type ScheduledResult struct {
	Checked   int
	Completed int
	Scheduled int
	Failed    int
}

// ProcessScheduled completes every active, pending, scheduled payment due at
// or before now. A payment with a frequency gets its next pending occurrence
// in the same unit of work. Each payment is processed on its own; a failure
// is logged and the pass continues.
func (s *PaymentService) ProcessScheduled(ctx context.Context, now time.Time) (ScheduledResult, error) {
	due, err := s.store.ListPayments(ctx, core.PaymentFilter{
		Status:        core.StatusPending,
		ScheduledOnly: true,
		DueBefore:     now,
	})
	if err != nil {
		return ScheduledResult{}, fmt.Errorf("list due payments: %w", err)
	}

	slog.InfoContext(ctx, "Processing scheduled payments",
		"due", len(due),
		"processing_date", now.Format("2006-01-02"))

	result := ScheduledResult{Checked: len(due)}
	for _, p := range due {
		done, next, err := s.processDue(ctx, p.ID, now)
		if err != nil {
			result.Failed++
			slog.ErrorContext(ctx, "Failed to process scheduled payment",
				"id", p.ID,
				"concept", p.Concept,
				"error", err)
			continue
		}
		if !done {
			continue
		}
		result.Completed++
		if next != nil {
			result.Scheduled++
		}
	}

	slog.InfoContext(ctx, "Scheduled payment processing complete",
		"completed", result.Completed,
		"scheduled", result.Scheduled,
		"failed", result.Failed)

	return result, nil
}

// processDue completes one payment and schedules its successor. It reports
// false when the payment no longer needs processing.
func (s *PaymentService) processDue(ctx context.Context, id string, now time.Time) (bool, *core.Payment, error) {
	var (
		completed core.Payment
		expense   *core.Entry
		next      *core.Payment
		skipped   bool
	)
	summary, err := s.profits.Mutate(ctx, func(ctx context.Context, q storage.Queries) (core.Delta, error) {
		next, skipped = nil, false

		p, err := getActivePayment(ctx, q, id)
		if err != nil {
			return core.Delta{}, err
		}
		// Re-check inside the unit of work: another pass may have got here first.
		if p.Status != core.StatusPending || !p.IsScheduled || p.DueDate.After(now) {
			skipped = true
			return core.Delta{}, nil
		}

		var delta core.Delta
		completed, expense, delta, err = s.complete(ctx, q, p)
		if err != nil {
			return core.Delta{}, err
		}

		if p.Frequency != "" {
			n, err := s.nextOccurrence(p)
			if err != nil {
				return core.Delta{}, err
			}
			if err := q.InsertPayment(ctx, n); err != nil {
				return core.Delta{}, fmt.Errorf("schedule next payment: %w", err)
			}
			next = &n
		}
		return delta, nil
	})
	if err != nil {
		return false, nil, err
	}
	if skipped {
		return false, nil, nil
	}

	attrs := []any{"id", completed.ID, "expense_id", expense.ID, "amount", completed.Amount.String()}
	if next != nil {
		attrs = append(attrs, "next_id", next.ID, "next_due", next.DueDate.Format("2006-01-02"))
		s.publishEvent(ctx, amqp.EventPaymentCreated, next.ID, summary)
	}
	slog.InfoContext(ctx, "Scheduled payment completed", attrs...)
	s.publishEvent(ctx, amqp.EventPaymentCompleted, completed.ID, summary)

	return true, next, nil
}

// nextOccurrence builds the pending payment that follows p in its series.
func (s *PaymentService) nextOccurrence(p core.Payment) (core.Payment, error) {
	calc, err := GetNextDueCalculator(p.Frequency)
	if err != nil {
		return core.Payment{}, err
	}

	anchor := p.DueDate
	if p.StartDate != nil {
		anchor = *p.StartDate
	}
	start := anchor

	now := s.now().UTC()
	n := p
	n.ID = s.store.NewID()
	n.Status = core.StatusPending
	n.DueDate = calc.NextDue(p.DueDate, anchor)
	n.StartDate = &start
	n.CompletedAt = nil
	n.DeletedAt = nil
	n.CreatedAt = now
	n.UpdatedAt = now
	if err := n.Validate(); err != nil {
		return core.Payment{}, err
	}
	return n, nil
}
