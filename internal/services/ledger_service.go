package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// Publisher delivers ledger messages to the broker. *amqp.Client implements it.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, evt *amqp.LedgerEvent) error
	PublishRecalculate(ctx context.Context, req *amqp.RecalculateRequest) error
}

// LedgerService orchestrates income and expense operations. Every mutation
// refreshes the profit summary in the same unit of work before returning.
type LedgerService struct {
	store     storage.Store
	profits   *ProfitRecalculator
	publisher Publisher
	now       func() time.Time
}

// NewLedgerService wires the service. publisher may be nil.
func NewLedgerService(store storage.Store, profits *ProfitRecalculator, publisher Publisher) *LedgerService {
	return &LedgerService{
		store:     store,
		profits:   profits,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create stores a new active entry of e.Kind.
func (s *LedgerService) Create(ctx context.Context, e core.Entry) (core.Entry, error) {
	now := s.now().UTC()
	e.ID = s.store.NewID()
	e.DeletedAt = nil
	e.PaymentID = ""
	e.CreatedAt = now
	e.UpdatedAt = now
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	summary, err := s.profits.Mutate(ctx, func(ctx context.Context, q storage.Queries) (core.Delta, error) {
		if err := q.InsertEntry(ctx, e); err != nil {
			return core.Delta{}, fmt.Errorf("save %s: %w", e.Kind, err)
		}
		return core.DeltaFor(e.Kind, e.Amount), nil
	})
	if err != nil {
		return core.Entry{}, err
	}

	slog.InfoContext(ctx, "Entry created", entryFields(e, summary, log.OpCreate)...)
	s.publishEvent(ctx, amqp.EventEntryCreated, e, summary)

	return summary.WithProfits(e), nil
}

// Update merges patch into an active entry.
func (s *LedgerService) Update(ctx context.Context, kind core.EntryKind, id string, patch core.EntryPatch) (core.Entry, error) {
	if err := s.check(kind, id); err != nil {
		return core.Entry{}, err
	}

	var updated core.Entry
	summary, err := s.profits.Mutate(ctx, func(ctx context.Context, q storage.Queries) (core.Delta, error) {
		e, err := getActiveEntry(ctx, q, kind, id)
		if err != nil {
			return core.Delta{}, err
		}
		oldAmount := e.Amount

		e.Apply(patch)
		if err := e.Validate(); err != nil {
			return core.Delta{}, err
		}
		e.UpdatedAt = s.now().UTC()

		if err := q.UpdateEntry(ctx, e); err != nil {
			return core.Delta{}, fmt.Errorf("update %s: %w", kind, err)
		}
		updated = e
		return core.DeltaFor(kind, e.Amount.Sub(oldAmount)), nil
	})
	if err != nil {
		return core.Entry{}, err
	}

	slog.InfoContext(ctx, "Entry updated", entryFields(updated, summary, log.OpUpdate)...)
	s.publishEvent(ctx, amqp.EventEntryUpdated, updated, summary)
	return summary.WithProfits(updated), nil
}

// SoftDelete marks an active entry as deleted. It stays addressable through
// FindByIDIncludingDeleted and Restore.
func (s *LedgerService) SoftDelete(ctx context.Context, kind core.EntryKind, id string) (core.Entry, error) {
	if err := s.check(kind, id); err != nil {
		return core.Entry{}, err
	}

	var deleted core.Entry
	summary, err := s.profits.Mutate(ctx, func(ctx context.Context, q storage.Queries) (core.Delta, error) {
		e, err := getActiveEntry(ctx, q, kind, id)
		if err != nil {
			return core.Delta{}, err
		}
		now := s.now().UTC()
		e.DeletedAt = &now
		e.UpdatedAt = now

		if err := q.UpdateEntry(ctx, e); err != nil {
			return core.Delta{}, fmt.Errorf("soft delete %s: %w", kind, err)
		}
		deleted = e
		return core.DeltaFor(kind, e.Amount.Neg()), nil
	})
	if err != nil {
		return core.Entry{}, err
	}

	slog.InfoContext(ctx, "Entry soft deleted", entryFields(deleted, summary, log.OpDelete)...)
	s.publishEvent(ctx, amqp.EventEntryDeleted, deleted, summary)
	return summary.WithProfits(deleted), nil
}

// Restore clears DeletedAt. Restoring an active entry succeeds and changes nothing.
func (s *LedgerService) Restore(ctx context.Context, kind core.EntryKind, id string) (core.Entry, error) {
	if err := s.check(kind, id); err != nil {
		return core.Entry{}, err
	}

	var restored core.Entry
	summary, err := s.profits.Mutate(ctx, func(ctx context.Context, q storage.Queries) (core.Delta, error) {
		e, err := q.GetEntry(ctx, kind, id)
		if err != nil {
			return core.Delta{}, err
		}
		restored = e
		if e.IsActive() {
			return core.Delta{}, nil
		}

		e.DeletedAt = nil
		e.UpdatedAt = s.now().UTC()
		if err := q.UpdateEntry(ctx, e); err != nil {
			return core.Delta{}, fmt.Errorf("restore %s: %w", kind, err)
		}
		restored = e
		return core.DeltaFor(kind, e.Amount), nil
	})
	if err != nil {
		return core.Entry{}, err
	}

	slog.InfoContext(ctx, "Entry restored", entryFields(restored, summary, log.OpRestore)...)
	s.publishEvent(ctx, amqp.EventEntryRestored, restored, summary)
	return summary.WithProfits(restored), nil
}

// HardDelete removes an entry permanently, active or not. The summary is
// rebuilt by the worker from a recalculation request; without a broker the
// rescan runs inline.
func (s *LedgerService) HardDelete(ctx context.Context, kind core.EntryKind, id string) error {
	if err := s.check(kind, id); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, q storage.Queries) error {
		return q.DeleteEntry(ctx, kind, id)
	})
	if err != nil {
		return fmt.Errorf("hard delete %s: %w", kind, err)
	}

	slog.WarnContext(ctx, "Entry permanently deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldKind, kind,
		log.FieldEntityID, id,
		log.FieldOperation, log.OpPurge)

	if s.publisher != nil {
		req := amqp.NewRecalculateRequest("hard delete", string(kind), id)
		err := s.publisher.PublishRecalculate(ctx, req)
		if err == nil {
			return nil
		}
		slog.ErrorContext(ctx, "Failed to publish recalculation request, recalculating inline",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldEntityID, id,
			log.FieldError, err)
	}

	summary, err := s.profits.Recalculate(ctx)
	if err != nil {
		return err
	}
	s.publishEvent(ctx, amqp.EventEntryPurged, core.Entry{ID: id, Kind: kind}, summary)
	return nil
}

// FindByID returns an active entry. A soft-deleted entry is not found.
func (s *LedgerService) FindByID(ctx context.Context, kind core.EntryKind, id string) (core.Entry, error) {
	e, err := s.FindByIDIncludingDeleted(ctx, kind, id)
	if err != nil {
		return core.Entry{}, err
	}
	if !e.IsActive() {
		return core.Entry{}, core.ErrNotFound
	}
	return e, nil
}

// FindByIDIncludingDeleted returns an entry whether or not it is soft deleted.
func (s *LedgerService) FindByIDIncludingDeleted(ctx context.Context, kind core.EntryKind, id string) (core.Entry, error) {
	if err := s.check(kind, id); err != nil {
		return core.Entry{}, err
	}
	e, err := s.store.GetEntry(ctx, kind, id)
	if err != nil {
		return core.Entry{}, err
	}
	summary, err := s.profits.Summary(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	return summary.WithProfits(e), nil
}

// FindActive lists active entries matching filter.
func (s *LedgerService) FindActive(ctx context.Context, kind core.EntryKind, filter core.EntryFilter) ([]core.Entry, error) {
	filter.IncludeDeleted = false
	return s.List(ctx, kind, filter)
}

// List lists entries matching filter, soft-deleted ones only when the filter asks.
func (s *LedgerService) List(ctx context.Context, kind core.EntryKind, filter core.EntryFilter) ([]core.Entry, error) {
	if !kind.IsValid() {
		return nil, core.ErrInvalidKind
	}
	entries, err := s.store.ListEntries(ctx, kind, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	summary, err := s.profits.Summary(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i] = summary.WithProfits(entries[i])
	}
	return entries, nil
}

func (s *LedgerService) check(kind core.EntryKind, id string) error {
	if !kind.IsValid() {
		return core.ErrInvalidKind
	}
	return s.store.ValidateID(id)
}

func (s *LedgerService) publishEvent(ctx context.Context, eventType string, e core.Entry, summary core.Summary) {
	publishEvent(ctx, s.publisher, amqp.NewLedgerEvent(eventType, e.ID, string(e.Kind), summary))
}

func getActiveEntry(ctx context.Context, q storage.Queries, kind core.EntryKind, id string) (core.Entry, error) {
	e, err := q.GetEntry(ctx, kind, id)
	if err != nil {
		return core.Entry{}, err
	}
	if !e.IsActive() {
		return core.Entry{}, core.ErrNotFound
	}
	return e, nil
}

// publishEvent never fails the committed operation.
func publishEvent(ctx context.Context, publisher Publisher, evt *amqp.LedgerEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishLedgerEvent(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldComponent, log.ComponentAMQP,
			"type", evt.Type,
			log.FieldEntityID, evt.EntityID,
			log.FieldError, err)
	}
}

func entryFields(e core.Entry, summary core.Summary, op string) []any {
	return log.NewFields().
		WithComponent(log.ComponentLedger).
		WithEntry(string(e.Kind), e.ID, e.Amount.Cents, e.Category).
		WithSummary(summary.Profit.Cents, summary.Version).
		WithOperation(op).
		ToSlice()
}
