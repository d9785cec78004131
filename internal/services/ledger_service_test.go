package services

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/storage"
	"finanzas/internal/storage/memory"
)

// units returns whole currency units as Money.
func units(n int64) core.Money { return core.Cents(n * 100) }

type recordingPublisher struct {
	mu      sync.Mutex
	events  []*amqp.LedgerEvent
	recalcs []*amqp.RecalculateRequest
	err     error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, evt *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) PublishRecalculate(_ context.Context, req *amqp.RecalculateRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.recalcs = append(p.recalcs, req)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	store    storage.Store
	profits  *ProfitRecalculator
	ledger   *LedgerService
	payments *PaymentService
	pub      *recordingPublisher
}

func newFixture(t *testing.T, mode ProfitMode) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.New(), mode, &recordingPublisher{})
}

func newFixtureWithStore(t *testing.T, store storage.Store, mode ProfitMode, pub *recordingPublisher) *fixture {
	t.Helper()

	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	var publisher Publisher
	if pub != nil {
		publisher = pub
	}

	profits := NewProfitRecalculator(store, mode)
	profits.now = now
	ledger := NewLedgerService(store, profits, publisher)
	ledger.now = now
	payments := NewPaymentService(store, profits, publisher)
	payments.now = now

	return &fixture{store: store, profits: profits, ledger: ledger, payments: payments, pub: pub}
}

func newEntry(kind core.EntryKind, amount core.Money, category string) core.Entry {
	return core.Entry{
		Kind:     kind,
		UserID:   "u1",
		Title:    category,
		Amount:   amount,
		Category: category,
		Date:     time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) mustCreate(t *testing.T, kind core.EntryKind, amount core.Money, category string) core.Entry {
	t.Helper()
	e, err := f.ledger.Create(context.Background(), newEntry(kind, amount, category))
	if err != nil {
		t.Fatalf("Create(%s) error = %v", kind, err)
	}
	return e
}

// assertProfits checks that every active entry reports want.
func (f *fixture) assertProfits(t *testing.T, want core.Money) {
	t.Helper()
	ctx := context.Background()
	for _, kind := range []core.EntryKind{core.KindIncome, core.KindExpense} {
		entries, err := f.ledger.FindActive(ctx, kind, core.EntryFilter{})
		if err != nil {
			t.Fatalf("FindActive(%s) error = %v", kind, err)
		}
		for _, e := range entries {
			if e.Profits != want {
				t.Errorf("%s %s profits = %v, want %v", kind, e.ID, e.Profits, want)
			}
		}
	}
	summary, err := f.profits.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Profit != want {
		t.Errorf("summary profit = %v, want %v", summary.Profit, want)
	}
}

func TestLedgerScenarios(t *testing.T) {
	for _, mode := range []ProfitMode{ModeIncremental, ModeRescan} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode)
			ctx := context.Background()

			// 1. An income of 1000.
			income := f.mustCreate(t, core.KindIncome, units(1000), "Salario")
			if income.Profits != units(1000) {
				t.Errorf("created income profits = %v, want 1000.00", income.Profits)
			}
			f.assertProfits(t, units(1000))

			// 2. An expense of 400.
			expense := f.mustCreate(t, core.KindExpense, units(400), "Renta")
			if expense.Profits != units(600) {
				t.Errorf("created expense profits = %v, want 600.00", expense.Profits)
			}
			f.assertProfits(t, units(600))

			// 3. Soft-deleting the expense brings profits back to 1000.
			if _, err := f.ledger.SoftDelete(ctx, core.KindExpense, expense.ID); err != nil {
				t.Fatalf("SoftDelete() error = %v", err)
			}
			f.assertProfits(t, units(1000))

			// 4. Completing a pending payment of 250 mirrors one expense.
			created, err := f.payments.Create(ctx, core.Payment{
				Concept: "Internet", Amount: units(250), Status: core.StatusPending,
			})
			if err != nil {
				t.Fatalf("Payments.Create() error = %v", err)
			}
			if created.Expense != nil {
				t.Fatalf("pending payment mirrored expense %+v", created.Expense)
			}

			res, err := f.payments.Complete(ctx, created.Payment.ID)
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if res.Expense == nil {
				t.Fatal("Complete() returned no expense")
			}
			if res.Expense.Amount != units(250) || res.Expense.Category != core.PaymentsCategory {
				t.Errorf("mirrored expense = %+v, want amount 250.00 category Pagos", res.Expense)
			}
			if res.Expense.PaymentID != created.Payment.ID {
				t.Errorf("mirrored expense PaymentID = %q, want %q", res.Expense.PaymentID, created.Payment.ID)
			}
			f.assertProfits(t, units(750))

			if _, err := f.ledger.FindByID(ctx, core.KindExpense, expense.ID); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("expense from step 2 should stay deleted, FindByID error = %v", err)
			}

			// 5. Completing again is a no-op: still one expense for the payment.
			again, err := f.payments.Complete(ctx, created.Payment.ID)
			if err != nil {
				t.Fatalf("second Complete() error = %v", err)
			}
			if again.Expense == nil || again.Expense.ID != res.Expense.ID {
				t.Errorf("second Complete() expense = %+v, want existing %s", again.Expense, res.Expense.ID)
			}
			pagos, err := f.ledger.FindActive(ctx, core.KindExpense, core.EntryFilter{Category: core.PaymentsCategory})
			if err != nil {
				t.Fatalf("FindActive() error = %v", err)
			}
			if len(pagos) != 1 {
				t.Errorf("found %d Pagos expenses, want exactly 1", len(pagos))
			}
			f.assertProfits(t, units(750))
		})
	}
}

func TestRecalculate_Idempotent(t *testing.T) {
	f := newFixture(t, ModeIncremental)
	ctx := context.Background()
	f.mustCreate(t, core.KindIncome, units(1000), "Salario")
	f.mustCreate(t, core.KindExpense, units(400), "Renta")

	first, err := f.profits.Recalculate(ctx)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	second, err := f.profits.Recalculate(ctx)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}

	if first.Profit != units(600) || !first.SameTotals(second) {
		t.Errorf("Recalculate() = %+v then %+v, want 600.00 both times", first, second)
	}
	if first.Version != second.Version {
		t.Errorf("Recalculate() without changes bumped version %d -> %d", first.Version, second.Version)
	}
}

func TestSoftDelete_ExclusionAndRestore(t *testing.T) {
	f := newFixture(t, ModeIncremental)
	ctx := context.Background()
	salary := f.mustCreate(t, core.KindIncome, units(1000), "Salario")
	f.mustCreate(t, core.KindIncome, units(200), "Extra")

	if _, err := f.ledger.SoftDelete(ctx, core.KindIncome, salary.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	f.assertProfits(t, units(200))

	// Soft-deleted records are not active but stay addressable.
	if _, err := f.ledger.FindByID(ctx, core.KindIncome, salary.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("FindByID() of soft-deleted error = %v, want ErrNotFound", err)
	}
	got, err := f.ledger.FindByIDIncludingDeleted(ctx, core.KindIncome, salary.ID)
	if err != nil {
		t.Fatalf("FindByIDIncludingDeleted() error = %v", err)
	}
	if got.DeletedAt == nil {
		t.Error("FindByIDIncludingDeleted() DeletedAt = nil, want set")
	}

	if _, err := f.ledger.SoftDelete(ctx, core.KindIncome, salary.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second SoftDelete() error = %v, want ErrNotFound", err)
	}
	if _, err := f.ledger.Update(ctx, core.KindIncome, salary.ID, core.EntryPatch{Title: ptr("x")}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update() of soft-deleted error = %v, want ErrNotFound", err)
	}

	restored, err := f.ledger.Restore(ctx, core.KindIncome, salary.ID)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.DeletedAt != nil {
		t.Error("Restore() left DeletedAt set")
	}
	f.assertProfits(t, units(1200))

	// Restoring an active record succeeds and changes nothing.
	before, _ := f.profits.Summary(ctx)
	if _, err := f.ledger.Restore(ctx, core.KindIncome, salary.ID); err != nil {
		t.Fatalf("Restore() of active record error = %v", err)
	}
	after, _ := f.profits.Summary(ctx)
	if before.Version != after.Version || !before.SameTotals(after) {
		t.Errorf("Restore() of active record changed summary %+v -> %+v", before, after)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, ModeIncremental)
	ctx := context.Background()
	income := f.mustCreate(t, core.KindIncome, units(1000), "Salario")
	f.mustCreate(t, core.KindExpense, units(300), "Renta")

	updated, err := f.ledger.Update(ctx, core.KindIncome, income.ID, core.EntryPatch{
		Amount: ptr(units(1500)),
		Notes:  ptr("raise"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Amount != units(1500) || updated.Notes != "raise" || updated.Title != income.Title {
		t.Errorf("Update() = %+v", updated)
	}
	if updated.Profits != units(1200) {
		t.Errorf("Update() profits = %v, want 1200.00", updated.Profits)
	}
	f.assertProfits(t, units(1200))

	tests := []struct {
		name    string
		kind    core.EntryKind
		id      string
		patch   core.EntryPatch
		wantErr error
	}{
		{"malformed id", core.KindIncome, "not-an-id", core.EntryPatch{}, core.ErrInvalidID},
		{"unknown id", core.KindIncome, f.store.NewID(), core.EntryPatch{}, core.ErrNotFound},
		{"wrong kind", core.KindExpense, income.ID, core.EntryPatch{}, core.ErrNotFound},
		{"invalid kind", core.EntryKind("transfer"), income.ID, core.EntryPatch{}, core.ErrValidation},
		{"empty category", core.KindIncome, income.ID, core.EntryPatch{Category: ptr(" ")}, core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Update(ctx, tt.kind, tt.id, tt.patch)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Update() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Failed updates leave the ledger as it was.
	f.assertProfits(t, units(1200))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, ModeIncremental)
	ctx := context.Background()

	bad := newEntry(core.KindIncome, core.Cents(-1), "Salario")
	if _, err := f.ledger.Create(ctx, bad); !core.IsValidation(err) {
		t.Errorf("Create() with negative amount error = %v, want validation error", err)
	}

	withPayment := newEntry(core.KindExpense, units(5), "Casa")
	withPayment.PaymentID = "forged"
	e, err := f.ledger.Create(ctx, withPayment)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.PaymentID != "" {
		t.Errorf("Create() kept user supplied PaymentID %q", e.PaymentID)
	}
}

// failingSummaryStore fails every summary write made inside a unit of work.
type failingSummaryStore struct {
	*memory.Store
}

type failingSummaryQueries struct {
	storage.Queries
}

func (failingSummaryQueries) PutSummary(context.Context, core.Summary) error {
	return errors.New("disk full")
}

func (s failingSummaryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, q storage.Queries) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, q storage.Queries) error {
		return fn(ctx, failingSummaryQueries{q})
	})
}

func TestRecalculationFailure_RollsBackMutation(t *testing.T) {
	store := failingSummaryStore{memory.New()}
	f := newFixtureWithStore(t, store, ModeIncremental, nil)
	ctx := context.Background()

	_, err := f.ledger.Create(ctx, newEntry(core.KindIncome, units(1000), "Salario"))
	if !errors.Is(err, core.ErrRecalculation) {
		t.Fatalf("Create() error = %v, want ErrRecalculation", err)
	}

	entries, err := f.ledger.FindActive(ctx, core.KindIncome, core.EntryFilter{})
	if err != nil {
		t.Fatalf("FindActive() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("FindActive() = %d entries, want the failed create rolled back", len(entries))
	}
}

func TestCreate_AggregateOverflowRollsBack(t *testing.T) {
	f := newFixture(t, ModeIncremental)
	ctx := context.Background()

	nearMax := core.Cents(math.MaxInt64 - core.MaxAmountCents/2)
	if err := f.store.PutSummary(ctx, core.Summary{TotalIncome: nearMax, Profit: nearMax, Version: 1}); err != nil {
		t.Fatalf("PutSummary() error = %v", err)
	}

	_, err := f.ledger.Create(ctx, newEntry(core.KindIncome, core.Cents(core.MaxAmountCents), "Salario"))
	if !errors.Is(err, core.ErrRecalculation) || !errors.Is(err, core.ErrAmountOverflow) {
		t.Fatalf("Create() error = %v, want ErrRecalculation wrapping ErrAmountOverflow", err)
	}

	entries, err := f.ledger.FindActive(ctx, core.KindIncome, core.EntryFilter{})
	if err != nil {
		t.Fatalf("FindActive() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("FindActive() = %d entries, want the overflowing create rolled back", len(entries))
	}
	summary, err := f.profits.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.TotalIncome != nearMax || summary.Version != 1 {
		t.Errorf("Summary() = %+v, want untouched", summary)
	}

	tooLarge := newEntry(core.KindIncome, core.Cents(core.MaxAmountCents+1), "Salario")
	if _, err := f.ledger.Create(ctx, tooLarge); !errors.Is(err, core.ErrAmountTooLarge) {
		t.Errorf("Create() above the amount cap error = %v, want ErrAmountTooLarge", err)
	}
}

func TestConcurrentMutations_SQLite(t *testing.T) {
	for _, mode := range []ProfitMode{ModeIncremental, ModeRescan} {
		t.Run(string(mode), func(t *testing.T) {
			repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
			if err != nil {
				t.Fatalf("NewSQLiteRepository() error = %v", err)
			}
			t.Cleanup(func() { repo.Close() })
			f := newFixtureWithStore(t, repo, mode, nil)
			ctx := context.Background()

			const workers = 30
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					switch i % 3 {
					case 0:
						_, err := f.ledger.Create(ctx, newEntry(core.KindIncome, units(100), "Salario"))
						errs <- err
					case 1:
						_, err := f.ledger.Create(ctx, newEntry(core.KindExpense, units(30), "Luz"))
						errs <- err
					default:
						e, err := f.ledger.Create(ctx, newEntry(core.KindExpense, units(50), "Café"))
						if err == nil {
							_, err = f.ledger.SoftDelete(ctx, core.KindExpense, e.ID)
						}
						errs <- err
					}
				}(i)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					t.Errorf("concurrent mutation error = %v", err)
				}
			}

			drift, err := f.profits.Verify(ctx)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if drift.Drifted() {
				t.Errorf("Verify() = %+v, want no drift", drift)
			}
			f.assertProfits(t, units(workers/3*(100-30)))
		})
	}
}

func TestHardDelete(t *testing.T) {
	t.Run("publishes recalculation request", func(t *testing.T) {
		f := newFixture(t, ModeIncremental)
		ctx := context.Background()
		income := f.mustCreate(t, core.KindIncome, units(1000), "Salario")
		f.mustCreate(t, core.KindIncome, units(100), "Extra")

		if err := f.ledger.HardDelete(ctx, core.KindIncome, income.ID); err != nil {
			t.Fatalf("HardDelete() error = %v", err)
		}
		if _, err := f.ledger.FindByIDIncludingDeleted(ctx, core.KindIncome, income.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("FindByIDIncludingDeleted() after hard delete error = %v, want ErrNotFound", err)
		}
		if len(f.pub.recalcs) != 1 || f.pub.recalcs[0].EntityID != income.ID {
			t.Fatalf("recalculation requests = %+v, want one for %s", f.pub.recalcs, income.ID)
		}

		// The summary is stale until the worker runs.
		drift, err := f.profits.Verify(ctx)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !drift.Drifted() {
			t.Fatal("Verify() reports no drift before the worker ran")
		}
		if _, err := f.profits.Recalculate(ctx); err != nil {
			t.Fatalf("Recalculate() error = %v", err)
		}
		f.assertProfits(t, units(100))
	})

	t.Run("recalculates inline without broker", func(t *testing.T) {
		f := newFixtureWithStore(t, memory.New(), ModeIncremental, nil)
		ctx := context.Background()
		expense := f.mustCreate(t, core.KindExpense, units(40), "Renta")
		f.mustCreate(t, core.KindIncome, units(100), "Salario")

		if err := f.ledger.HardDelete(ctx, core.KindExpense, expense.ID); err != nil {
			t.Fatalf("HardDelete() error = %v", err)
		}
		f.assertProfits(t, units(100))
	})

	t.Run("recalculates inline when publish fails", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("circuit breaker is open")}
		f := newFixtureWithStore(t, memory.New(), ModeIncremental, pub)
		ctx := context.Background()
		income := f.mustCreate(t, core.KindIncome, units(100), "Salario")

		if err := f.ledger.HardDelete(ctx, core.KindIncome, income.ID); err != nil {
			t.Fatalf("HardDelete() error = %v", err)
		}
		f.assertProfits(t, core.Money{})
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t, ModeIncremental)
		err := f.ledger.HardDelete(context.Background(), core.KindIncome, f.store.NewID())
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("HardDelete() error = %v, want ErrNotFound", err)
		}
	})
}

func TestVerify_DetectsAndRepairsDrift(t *testing.T) {
	f := newFixture(t, ModeIncremental)
	ctx := context.Background()
	f.mustCreate(t, core.KindIncome, units(500), "Salario")

	// A write that bypassed the service leaves the summary behind.
	rogue := newEntry(core.KindExpense, units(50), "Casa")
	rogue.ID = f.store.NewID()
	if err := f.store.InsertEntry(ctx, rogue); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	drift, err := f.profits.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !drift.Drifted() || drift.Actual.Profit != units(450) || drift.Stored.Profit != units(500) {
		t.Fatalf("Verify() = %+v, want stored 500.00 actual 450.00", drift)
	}

	if _, err := f.profits.Recalculate(ctx); err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	drift, err = f.profits.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if drift.Drifted() {
		t.Errorf("Verify() after Recalculate() = %+v, want no drift", drift)
	}
}

func TestProfitModes_Agree(t *testing.T) {
	run := func(t *testing.T, mode ProfitMode) core.Summary {
		f := newFixture(t, mode)
		ctx := context.Background()

		a := f.mustCreate(t, core.KindIncome, units(1200), "Salario")
		b := f.mustCreate(t, core.KindExpense, units(80), "Luz")
		f.mustCreate(t, core.KindExpense, units(15), "Café")
		if _, err := f.ledger.Update(ctx, core.KindExpense, b.ID, core.EntryPatch{Amount: ptr(units(95))}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if _, err := f.ledger.SoftDelete(ctx, core.KindIncome, a.ID); err != nil {
			t.Fatalf("SoftDelete() error = %v", err)
		}
		if _, err := f.ledger.Restore(ctx, core.KindIncome, a.ID); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if _, err := f.payments.Create(ctx, core.Payment{
			Concept: "Seguro", Amount: units(60), Status: core.StatusCompleted,
		}); err != nil {
			t.Fatalf("Payments.Create() error = %v", err)
		}

		drift, err := f.profits.Verify(ctx)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if drift.Drifted() {
			t.Errorf("Verify() = %+v, want no drift", drift)
		}
		return drift.Stored
	}

	incremental := run(t, ModeIncremental)
	rescanned := run(t, ModeRescan)
	if !incremental.SameTotals(rescanned) {
		t.Errorf("incremental %+v and rescan %+v disagree", incremental, rescanned)
	}
	if want := units(1200 - 95 - 15 - 60); incremental.Profit != want {
		t.Errorf("profit = %v, want %v", incremental.Profit, want)
	}
}

func TestLedgerEvents(t *testing.T) {
	f := newFixture(t, ModeIncremental)
	ctx := context.Background()

	e := f.mustCreate(t, core.KindIncome, units(10), "Salario")
	if _, err := f.ledger.SoftDelete(ctx, core.KindIncome, e.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	if _, err := f.ledger.Restore(ctx, core.KindIncome, e.ID); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	want := []string{amqp.EventEntryCreated, amqp.EventEntryDeleted, amqp.EventEntryRestored}
	got := f.pub.eventTypes()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if last := f.pub.events[2]; last.Profit != units(10) || last.Version != 3 {
		t.Errorf("restored event = %+v, want profit 10.00 version 3", last)
	}
}

func TestPublishFailure_DoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	f := newFixtureWithStore(t, memory.New(), ModeIncremental, pub)

	if _, err := f.ledger.Create(context.Background(), newEntry(core.KindIncome, units(1), "Salario")); err != nil {
		t.Fatalf("Create() error = %v, want publish failure ignored", err)
	}
	f.assertProfits(t, units(1))
}

func ptr[T any](v T) *T { return &v }
