// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

// ProfitMode selects how a mutation refreshes the ledger summary.
type ProfitMode string

const (
	// ModeIncremental folds the mutation's delta into the stored summary.
	ModeIncremental ProfitMode = "incremental"
	// ModeRescan sums every active entry inside the mutation's unit of work.
	ModeRescan ProfitMode = "rescan"
)

func (m ProfitMode) IsValid() bool {
	return m == ModeIncremental || m == ModeRescan
}

// maxConflictRetries bounds how often a unit of work is replayed after the
// summary version moved under it.
const maxConflictRetries = 3

// ProfitRecalculator maintains the ledger summary that every entry's profits
// are read from.
type ProfitRecalculator struct {
	store storage.Store
	mode  ProfitMode
	now   func() time.Time
	group singleflight.Group
}

func NewProfitRecalculator(store storage.Store, mode ProfitMode) *ProfitRecalculator {
	if !mode.IsValid() {
		mode = ModeIncremental
	}
	return &ProfitRecalculator{
		store: store,
		mode:  mode,
		now:   time.Now,
	}
}

func (r *ProfitRecalculator) Mode() ProfitMode { return r.mode }

// Mutate runs fn and the summary refresh as one unit of work. fn reports the
// change it made to the active totals. A conflicting summary write replays
// the whole unit.
func (r *ProfitRecalculator) Mutate(ctx context.Context, fn func(ctx context.Context, q storage.Queries) (core.Delta, error)) (core.Summary, error) {
	var (
		summary core.Summary
		err     error
	)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = r.store.WithinTx(ctx, func(ctx context.Context, q storage.Queries) error {
			delta, err := fn(ctx, q)
			if err != nil {
				return err
			}
			summary, err = r.Refresh(ctx, q, delta)
			return err
		})
		if !errors.Is(err, core.ErrConflict) {
			break
		}
		slog.WarnContext(ctx, "Summary changed during mutation, retrying", "attempt", attempt+1)
	}
	return summary, err
}

// Refresh brings the summary up to date within q's unit of work.
// Failures are wrapped with core.ErrRecalculation so the caller's unit of
// work rolls back and the error is told apart from the mutation's own.
func (r *ProfitRecalculator) Refresh(ctx context.Context, q storage.Queries, delta core.Delta) (core.Summary, error) {
	current, err := q.GetSummary(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("%w: read summary: %w", core.ErrRecalculation, err)
	}

	var next core.Summary
	switch r.mode {
	case ModeRescan:
		next, err = rescan(ctx, q)
		if err != nil {
			return core.Summary{}, fmt.Errorf("%w: %w", core.ErrRecalculation, err)
		}
	default:
		if delta.IsZero() {
			return current, nil
		}
		next, err = current.Apply(delta)
		if err != nil {
			return core.Summary{}, fmt.Errorf("%w: %w", core.ErrRecalculation, err)
		}
	}

	if next.SameTotals(current) {
		return current, nil
	}
	return r.write(ctx, q, current, next)
}

func (r *ProfitRecalculator) write(ctx context.Context, q storage.Queries, current, next core.Summary) (core.Summary, error) {
	next.Version = current.Version + 1
	next.UpdatedAt = r.now().UTC()
	if err := q.PutSummary(ctx, next); err != nil {
		return core.Summary{}, fmt.Errorf("%w: write summary: %w", core.ErrRecalculation, err)
	}
	return next, nil
}

// rescan sums every active entry. Deterministic and idempotent.
func rescan(ctx context.Context, q storage.Queries) (core.Summary, error) {
	income, err := q.SumActive(ctx, core.KindIncome)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum incomes: %w", err)
	}
	expense, err := q.SumActive(ctx, core.KindExpense)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Summary{}.Apply(core.Delta{Income: income, Expense: expense})
}

// Recalculate rebuilds the summary from a full rescan. Concurrent callers in
// this process share one execution.
func (r *ProfitRecalculator) Recalculate(ctx context.Context) (core.Summary, error) {
	v, err, shared := r.group.Do("recalculate", func() (any, error) {
		var summary core.Summary
		err := r.store.WithinTx(ctx, func(ctx context.Context, q storage.Queries) error {
			current, err := q.GetSummary(ctx)
			if err != nil {
				return fmt.Errorf("read summary: %w", err)
			}
			next, err := rescan(ctx, q)
			if err != nil {
				return err
			}
			if next.SameTotals(current) {
				summary = current
				return nil
			}
			summary, err = r.write(ctx, q, current, next)
			return err
		})
		if err != nil {
			return core.Summary{}, fmt.Errorf("%w: %w", core.ErrRecalculation, err)
		}
		return summary, nil
	})
	if err != nil {
		return core.Summary{}, err
	}

	summary := v.(core.Summary)
	slog.InfoContext(ctx, "Profits recalculated", append(log.NewFields().
		WithComponent(log.ComponentProfits).
		WithSummary(summary.Profit.Cents, summary.Version).
		WithOperation(log.OpRecalculate).
		ToSlice(), "shared", shared)...)
	return summary, nil
}

// Drift compares the stored summary with a fresh rescan.
type Drift struct {
	Stored core.Summary
	Actual core.Summary
}

func (d Drift) Drifted() bool {
	return !d.Stored.SameTotals(d.Actual)
}

// Verify reports whether the stored summary matches the active entries.
func (r *ProfitRecalculator) Verify(ctx context.Context) (Drift, error) {
	var d Drift
	err := r.store.WithinTx(ctx, func(ctx context.Context, q storage.Queries) error {
		var err error
		if d.Stored, err = q.GetSummary(ctx); err != nil {
			return fmt.Errorf("read summary: %w", err)
		}
		d.Actual, err = rescan(ctx, q)
		return err
	})
	if err != nil {
		return Drift{}, fmt.Errorf("verify summary: %w", err)
	}
	return d, nil
}

// Summary returns the stored summary.
func (r *ProfitRecalculator) Summary(ctx context.Context) (core.Summary, error) {
	s, err := r.store.GetSummary(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("read summary: %w", err)
	}
	return s, nil
}
