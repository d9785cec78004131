package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// CascadeResult is a payment together with the expense it is mirrored to,
// if any.
type CascadeResult struct {
	Payment core.Payment
	Expense *core.Entry
}

// PaymentService handles payments. The transition of a payment into
// Completed mirrors it into exactly one expense in the "Pagos" category.
type PaymentService struct {
	store     storage.Store
	profits   *ProfitRecalculator
	publisher Publisher
	now       func() time.Time
}

// NewPaymentService wires the service. publisher may be nil.
func NewPaymentService(store storage.Store, profits *ProfitRecalculator, publisher Publisher) *PaymentService {
	return &PaymentService{
		store:     store,
		profits:   profits,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create stores a payment. A payment created as Completed is mirrored at once.
func (s *PaymentService) Create(ctx context.Context, p core.Payment) (CascadeResult, error) {
	now := s.now().UTC()
	p.ID = s.store.NewID()
	if p.Status == "" {
		p.Status = core.StatusPending
	}
	p.DeletedAt = nil
	p.CompletedAt = nil
	if p.IsCompleted() {
		p.CompletedAt = &now
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := p.Validate(); err != nil {
		return CascadeResult{}, err
	}

	var expense *core.Entry
	summary, err := s.profits.Mutate(ctx, func(ctx context.Context, q storage.Queries) (core.Delta, error) {
		expense = nil
		if err := q.InsertPayment(ctx, p); err != nil {
			return core.Delta{}, fmt.Errorf("save payment: %w", err)
		}
		if !p.IsCompleted() {
			return core.Delta{}, nil
		}
		e, delta, err := s.mirror(ctx, q, p)
		if err != nil {
			return core.Delta{}, err
		}
		expense = &e
		return delta, nil
	})
	if err != nil {
		return CascadeResult{}, err
	}

	slog.InfoContext(ctx, "Payment created", paymentFields(p, log.OpCreate)...)
	s.publishEvent(ctx, amqp.EventPaymentCreated, p.ID, summary)
	if expense != nil {
		s.publishEvent(ctx, amqp.EventPaymentCompleted, p.ID, summary)
	}
	return s.result(p, expense, summary), nil
}

// Update merges patch into an active payment. Moving the status into
// Completed mirrors the payment; moving it away leaves the expense alone.
func (s *PaymentService) Update(ctx context.Context, id string, patch core.PaymentPatch) (CascadeResult, error) {
	if err := s.store.ValidateID(id); err != nil {
		return CascadeResult{}, err
	}

	var (
		updated   core.Payment
		expense   *core.Entry
		completed bool
	)
	summary, err := s.profits.Mutate(ctx, func(ctx context.Context, q storage.Queries) (core.Delta, error) {
		expense, completed = nil, false

		p, err := getActivePayment(ctx, q, id)
		if err != nil {
			return core.Delta{}, err
		}
		wasCompleted := p.IsCompleted()

		p.Apply(patch)
		if err := p.Validate(); err != nil {
			return core.Delta{}, err
		}
		now := s.now().UTC()
		p.UpdatedAt = now

		var delta core.Delta
		if !wasCompleted && p.IsCompleted() {
			p.CompletedAt = &now
			e, d, err := s.mirror(ctx, q, p)
			if err != nil {
				return core.Delta{}, err
			}
			expense, delta, completed = &e, d, true
		}

		if err := q.UpdatePayment(ctx, p); err != nil {
			return core.Delta{}, fmt.Errorf("update payment: %w", err)
		}
		updated = p
		return delta, nil
	})
	if err != nil {
		return CascadeResult{}, err
	}

	s.publishEvent(ctx, amqp.EventPaymentUpdated, id, summary)
	if completed {
		slog.InfoContext(ctx, "Payment completed",
			append(paymentFields(updated, log.OpComplete), "expense_id", expense.ID)...)
		s.publishEvent(ctx, amqp.EventPaymentCompleted, id, summary)
	}
	return s.result(updated, expense, summary), nil
}

// Complete moves a payment to Completed. Completing a payment that already
// is Completed changes nothing and returns it with its existing expense.
func (s *PaymentService) Complete(ctx context.Context, id string) (CascadeResult, error) {
	if err := s.store.ValidateID(id); err != nil {
		return CascadeResult{}, err
	}

	var (
		res  CascadeResult
		noop bool
	)
	summary, err := s.profits.Mutate(ctx, func(ctx context.Context, q storage.Queries) (core.Delta, error) {
		var delta core.Delta
		res, noop, delta = CascadeResult{}, false, core.Delta{}

		p, err := getActivePayment(ctx, q, id)
		if err != nil {
			return core.Delta{}, err
		}

		if p.IsCompleted() {
			noop = true
			res.Payment = p
			if e, err := q.GetEntryByPayment(ctx, id); err == nil {
				res.Expense = &e
			} else if !errors.Is(err, core.ErrNotFound) {
				return core.Delta{}, fmt.Errorf("find mirrored expense: %w", err)
			}
			return core.Delta{}, nil
		}

		res.Payment, res.Expense, delta, err = s.complete(ctx, q, p)
		return delta, err
	})
	if err != nil {
		return CascadeResult{}, err
	}

	if noop {
		slog.DebugContext(ctx, "Payment already completed", paymentFields(res.Payment, log.OpComplete)...)
	} else {
		slog.InfoContext(ctx, "Payment completed",
			append(paymentFields(res.Payment, log.OpComplete), "expense_id", res.Expense.ID)...)
		s.publishEvent(ctx, amqp.EventPaymentCompleted, id, summary)
	}
	return s.result(res.Payment, res.Expense, summary), nil
}

// complete marks p Completed, stores it and mirrors it, within q's unit of work.
func (s *PaymentService) complete(ctx context.Context, q storage.Queries, p core.Payment) (core.Payment, *core.Entry, core.Delta, error) {
	now := s.now().UTC()
	p.Status = core.StatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now

	if err := q.UpdatePayment(ctx, p); err != nil {
		return core.Payment{}, nil, core.Delta{}, fmt.Errorf("update payment: %w", err)
	}
	e, delta, err := s.mirror(ctx, q, p)
	if err != nil {
		return core.Payment{}, nil, core.Delta{}, err
	}
	return p, &e, delta, nil
}

// mirror upserts the expense keyed on the payment id. A re-completed payment
// refreshes its existing expense and reactivates it; it never gets a second one.
func (s *PaymentService) mirror(ctx context.Context, q storage.Queries, p core.Payment) (core.Entry, core.Delta, error) {
	now := s.now().UTC()

	existing, err := q.GetEntryByPayment(ctx, p.ID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		e := core.Entry{
			ID:        s.store.NewID(),
			Kind:      core.KindExpense,
			CreatedAt: now,
		}
		fillMirror(&e, p, now)
		if err := e.Validate(); err != nil {
			return core.Entry{}, core.Delta{}, fmt.Errorf("mirror payment %s: %w", p.ID, err)
		}
		if err := q.InsertEntry(ctx, e); err != nil {
			return core.Entry{}, core.Delta{}, fmt.Errorf("mirror payment %s: %w", p.ID, err)
		}
		return e, core.DeltaFor(core.KindExpense, e.Amount), nil

	case err != nil:
		return core.Entry{}, core.Delta{}, fmt.Errorf("find mirrored expense: %w", err)
	}

	removed := core.Money{}
	if existing.IsActive() {
		removed = existing.Amount
	}
	fillMirror(&existing, p, now)
	existing.DeletedAt = nil
	if err := q.UpdateEntry(ctx, existing); err != nil {
		return core.Entry{}, core.Delta{}, fmt.Errorf("refresh mirrored expense: %w", err)
	}
	return existing, core.DeltaFor(core.KindExpense, existing.Amount.Sub(removed)), nil
}

func fillMirror(e *core.Entry, p core.Payment, now time.Time) {
	e.UserID = p.UserID
	e.Title = p.Concept
	e.Concept = p.Concept
	e.Amount = p.Amount
	e.Source = p.Method
	e.Category = core.PaymentsCategory
	e.Date = now
	e.Notes = "Pago " + p.ID
	e.PaymentID = p.ID
	e.UpdatedAt = now
}

// SoftDelete marks an active payment as deleted. Its mirrored expense, if
// any, is left untouched.
func (s *PaymentService) SoftDelete(ctx context.Context, id string) (core.Payment, error) {
	if err := s.store.ValidateID(id); err != nil {
		return core.Payment{}, err
	}

	var deleted core.Payment
	err := s.store.WithinTx(ctx, func(ctx context.Context, q storage.Queries) error {
		p, err := getActivePayment(ctx, q, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		p.DeletedAt = &now
		p.UpdatedAt = now
		if err := q.UpdatePayment(ctx, p); err != nil {
			return fmt.Errorf("soft delete payment: %w", err)
		}
		deleted = p
		return nil
	})
	if err != nil {
		return core.Payment{}, err
	}

	slog.InfoContext(ctx, "Payment soft deleted", paymentFields(deleted, log.OpDelete)...)
	s.publishPaymentEvent(ctx, amqp.EventPaymentDeleted, id)
	return deleted, nil
}

// Restore clears DeletedAt. Restoring an active payment changes nothing.
func (s *PaymentService) Restore(ctx context.Context, id string) (core.Payment, error) {
	if err := s.store.ValidateID(id); err != nil {
		return core.Payment{}, err
	}

	var restored core.Payment
	err := s.store.WithinTx(ctx, func(ctx context.Context, q storage.Queries) error {
		p, err := q.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		restored = p
		if p.IsActive() {
			return nil
		}
		p.DeletedAt = nil
		p.UpdatedAt = s.now().UTC()
		if err := q.UpdatePayment(ctx, p); err != nil {
			return fmt.Errorf("restore payment: %w", err)
		}
		restored = p
		return nil
	})
	if err != nil {
		return core.Payment{}, err
	}

	s.publishPaymentEvent(ctx, amqp.EventPaymentRestored, id)
	return restored, nil
}

// FindByID returns an active payment with its mirrored expense, if any.
func (s *PaymentService) FindByID(ctx context.Context, id string) (CascadeResult, error) {
	if err := s.store.ValidateID(id); err != nil {
		return CascadeResult{}, err
	}
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return CascadeResult{}, err
	}
	if !p.IsActive() {
		return CascadeResult{}, core.ErrNotFound
	}

	var expense *core.Entry
	e, err := s.store.GetEntryByPayment(ctx, id)
	switch {
	case err == nil:
		expense = &e
	case !errors.Is(err, core.ErrNotFound):
		return CascadeResult{}, fmt.Errorf("find mirrored expense: %w", err)
	}

	summary, err := s.profits.Summary(ctx)
	if err != nil {
		return CascadeResult{}, err
	}
	return s.result(p, expense, summary), nil
}

// List lists payments matching filter.
func (s *PaymentService) List(ctx context.Context, filter core.PaymentFilter) ([]core.Payment, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, core.ErrInvalidStatus
	}
	payments, err := s.store.ListPayments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (s *PaymentService) result(p core.Payment, expense *core.Entry, summary core.Summary) CascadeResult {
	if expense != nil {
		e := summary.WithProfits(*expense)
		expense = &e
	}
	return CascadeResult{Payment: p, Expense: expense}
}

func (s *PaymentService) publishEvent(ctx context.Context, eventType, id string, summary core.Summary) {
	publishEvent(ctx, s.publisher, amqp.NewLedgerEvent(eventType, id, "payment", summary))
}

// publishPaymentEvent is used by operations that leave the summary alone.
func (s *PaymentService) publishPaymentEvent(ctx context.Context, eventType, id string) {
	if s.publisher == nil {
		return
	}
	summary, err := s.profits.Summary(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read summary for event", "type", eventType, "error", err)
		return
	}
	s.publishEvent(ctx, eventType, id, summary)
}

func getActivePayment(ctx context.Context, q storage.Queries, id string) (core.Payment, error) {
	p, err := q.GetPayment(ctx, id)
	if err != nil {
		return core.Payment{}, err
	}
	if !p.IsActive() {
		return core.Payment{}, core.ErrNotFound
	}
	return p, nil
}

func paymentFields(p core.Payment, op string) []any {
	return log.NewFields().
		WithComponent(log.ComponentPayments).
		WithPayment(p.ID, p.Amount.Cents, string(p.Status)).
		WithOperation(op).
		ToSlice()
}
