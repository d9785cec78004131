package storage

import (
	"context"

	"finanzas/internal/core"
)

// Ports implemented by every storage backend (memory, sqlite, mongo).
type (
	// Queries are the record operations available inside and outside a unit of work.
	// Get methods return soft-deleted records too; callers decide what "active" means.
	Queries interface {
		InsertEntry(ctx context.Context, e core.Entry) error
		UpdateEntry(ctx context.Context, e core.Entry) error
		DeleteEntry(ctx context.Context, kind core.EntryKind, id string) error
		GetEntry(ctx context.Context, kind core.EntryKind, id string) (core.Entry, error)
		GetEntryByPayment(ctx context.Context, paymentID string) (core.Entry, error)
		ListEntries(ctx context.Context, kind core.EntryKind, filter core.EntryFilter) ([]core.Entry, error)
		// SumActive totals the amounts of every entry of kind with no DeletedAt.
		SumActive(ctx context.Context, kind core.EntryKind) (core.Money, error)

		InsertPayment(ctx context.Context, p core.Payment) error
		UpdatePayment(ctx context.Context, p core.Payment) error
		GetPayment(ctx context.Context, id string) (core.Payment, error)
		ListPayments(ctx context.Context, filter core.PaymentFilter) ([]core.Payment, error)

		GetSummary(ctx context.Context) (core.Summary, error)
		// PutSummary stores s only if the stored version is s.Version-1,
		// otherwise it returns core.ErrConflict.
		PutSummary(ctx context.Context, s core.Summary) error
	}

	// Store is a storage backend.
	Store interface {
		Queries
		// WithinTx runs fn as one atomic unit of work. Any error returned by fn
		// discards every write made through q.
		WithinTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
		// NewID returns a fresh identifier in the backend's format.
		NewID() string
		// ValidateID returns core.ErrInvalidID when id is malformed for the backend.
		ValidateID(id string) error
		Ping(ctx context.Context) error
		Close() error
	}
)
