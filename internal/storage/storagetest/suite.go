// Package storagetest holds the behaviour every storage.Store must share.
// Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) storage.Store

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	t.Run("EntryRoundTrip", func(t *testing.T) { testEntryRoundTrip(t, newStore(t)) })
	t.Run("EntryListing", func(t *testing.T) { testEntryListing(t, newStore(t)) })
	t.Run("SumActive", func(t *testing.T) { testSumActive(t, newStore(t)) })
	t.Run("PaymentMirrorUnique", func(t *testing.T) { testPaymentMirrorUnique(t, newStore(t)) })
	t.Run("Payments", func(t *testing.T) { testPayments(t, newStore(t)) })
	t.Run("SummaryVersion", func(t *testing.T) { testSummaryVersion(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
	t.Run("IDs", func(t *testing.T) { testIDs(t, newStore(t)) })
}

func entry(s storage.Store, kind core.EntryKind, cents int64, date time.Time) core.Entry {
	return core.Entry{
		ID:        s.NewID(),
		Kind:      kind,
		UserID:    "u1",
		Title:     "Salario",
		Concept:   "Nómina",
		Amount:    core.Cents(cents),
		Source:    "Banco",
		Category:  "Trabajo",
		Date:      date,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func testEntryRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := entry(s, core.KindIncome, 100000, base)
	e.Notes = "marzo"

	if err := s.InsertEntry(ctx, e); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	got, err := s.GetEntry(ctx, core.KindIncome, e.ID)
	if err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if got.Title != e.Title || got.Amount != e.Amount || got.Notes != e.Notes || !got.Date.Equal(e.Date) {
		t.Errorf("GetEntry() = %+v, want %+v", got, e)
	}
	if got.Kind != core.KindIncome {
		t.Errorf("GetEntry().Kind = %q, want income", got.Kind)
	}

	// Records of one kind are not visible as the other.
	if _, err := s.GetEntry(ctx, core.KindExpense, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetEntry(expense) error = %v, want ErrNotFound", err)
	}

	deleted := base.Add(time.Hour)
	got.DeletedAt = &deleted
	got.Amount = core.Cents(90000)
	if err := s.UpdateEntry(ctx, got); err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	again, err := s.GetEntry(ctx, core.KindIncome, e.ID)
	if err != nil {
		t.Fatalf("GetEntry() after update error = %v", err)
	}
	if again.DeletedAt == nil || !again.DeletedAt.Equal(deleted) {
		t.Errorf("DeletedAt = %v, want %v", again.DeletedAt, deleted)
	}
	if again.Amount.Cents != 90000 {
		t.Errorf("Amount = %d, want 90000", again.Amount.Cents)
	}

	if err := s.DeleteEntry(ctx, core.KindIncome, e.ID); err != nil {
		t.Fatalf("DeleteEntry() error = %v", err)
	}
	if _, err := s.GetEntry(ctx, core.KindIncome, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetEntry() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.UpdateEntry(ctx, e); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateEntry() on missing error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteEntry(ctx, core.KindIncome, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteEntry() on missing error = %v, want ErrNotFound", err)
	}
}

func testEntryListing(t *testing.T, s storage.Store) {
	ctx := context.Background()

	older := entry(s, core.KindExpense, 100, base)
	newer := entry(s, core.KindExpense, 200, base.AddDate(0, 0, 1))
	other := entry(s, core.KindExpense, 300, base)
	other.UserID = "u2"
	other.Category = "Casa"
	gone := entry(s, core.KindExpense, 400, base)
	deletedAt := base
	gone.DeletedAt = &deletedAt

	for _, e := range []core.Entry{older, newer, other, gone} {
		if err := s.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter core.EntryFilter
		want   int
	}{
		{"active only", core.EntryFilter{}, 3},
		{"include deleted", core.EntryFilter{IncludeDeleted: true}, 4},
		{"by user", core.EntryFilter{UserID: "u1"}, 2},
		{"by category", core.EntryFilter{Category: "Casa"}, 1},
		{"no match", core.EntryFilter{UserID: "nobody"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEntries(ctx, core.KindExpense, tt.filter)
			if err != nil {
				t.Fatalf("ListEntries() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListEntries() returned %d entries, want %d", len(got), tt.want)
			}
		})
	}

	got, err := s.ListEntries(ctx, core.KindExpense, core.EntryFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(got) == 2 && got[0].ID != newer.ID {
		t.Errorf("ListEntries()[0] = %s, want newest entry %s first", got[0].ID, newer.ID)
	}

	incomes, err := s.ListEntries(ctx, core.KindIncome, core.EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries(income) error = %v", err)
	}
	if len(incomes) != 0 {
		t.Errorf("ListEntries(income) = %d entries, want 0", len(incomes))
	}
}

func testSumActive(t *testing.T, s storage.Store) {
	ctx := context.Background()

	total, err := s.SumActive(ctx, core.KindIncome)
	if err != nil {
		t.Fatalf("SumActive() on empty store error = %v", err)
	}
	if !total.IsZero() {
		t.Errorf("SumActive() on empty store = %v, want 0", total)
	}

	a := entry(s, core.KindIncome, 100000, base)
	b := entry(s, core.KindIncome, 50000, base)
	c := entry(s, core.KindIncome, 700, base)
	deletedAt := base
	c.DeletedAt = &deletedAt
	for _, e := range []core.Entry{a, b, c} {
		if err := s.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry() error = %v", err)
		}
	}

	total, err = s.SumActive(ctx, core.KindIncome)
	if err != nil {
		t.Fatalf("SumActive() error = %v", err)
	}
	if total.Cents != 150000 {
		t.Errorf("SumActive() = %d, want 150000", total.Cents)
	}
}

func testPaymentMirrorUnique(t *testing.T, s storage.Store) {
	ctx := context.Background()
	paymentID := s.NewID()

	first := entry(s, core.KindExpense, 5000, base)
	first.PaymentID = paymentID
	if err := s.InsertEntry(ctx, first); err != nil {
		t.Fatalf("InsertEntry() error = %v", err)
	}

	got, err := s.GetEntryByPayment(ctx, paymentID)
	if err != nil {
		t.Fatalf("GetEntryByPayment() error = %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("GetEntryByPayment() = %s, want %s", got.ID, first.ID)
	}

	second := entry(s, core.KindExpense, 5000, base)
	second.PaymentID = paymentID
	if err := s.InsertEntry(ctx, second); err == nil {
		t.Error("InsertEntry() with a mirrored payment id succeeded, want error")
	}

	if _, err := s.GetEntryByPayment(ctx, s.NewID()); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetEntryByPayment(unknown) error = %v, want ErrNotFound", err)
	}
}

func testPayments(t *testing.T, s storage.Store) {
	ctx := context.Background()

	start := base.AddDate(0, -1, 0)
	due := core.Payment{
		ID: s.NewID(), UserID: "u1", Concept: "Luz", Amount: core.Cents(4500), Method: "card",
		Status: core.StatusPending, IsScheduled: true, Frequency: core.Monthly,
		DueDate: base, StartDate: &start, CreatedAt: base, UpdatedAt: base,
	}
	later := due
	later.ID = s.NewID()
	later.DueDate = base.AddDate(0, 1, 0)
	later.StartDate = nil
	oneOff := core.Payment{
		ID: s.NewID(), UserID: "u2", Concept: "Regalo", Amount: core.Cents(2000),
		Status: core.StatusCompleted, DueDate: base.AddDate(0, 0, -5), CreatedAt: base, UpdatedAt: base,
	}

	for _, p := range []core.Payment{later, due, oneOff} {
		if err := s.InsertPayment(ctx, p); err != nil {
			t.Fatalf("InsertPayment() error = %v", err)
		}
	}

	got, err := s.GetPayment(ctx, due.ID)
	if err != nil {
		t.Fatalf("GetPayment() error = %v", err)
	}
	if got.Concept != "Luz" || !got.IsScheduled || got.Frequency != core.Monthly || got.Status != core.StatusPending {
		t.Errorf("GetPayment() = %+v", got)
	}
	if got.StartDate == nil || !got.StartDate.Equal(start) {
		t.Errorf("GetPayment().StartDate = %v, want %v", got.StartDate, start)
	}
	if got.CompletedAt != nil {
		t.Errorf("GetPayment().CompletedAt = %v, want nil", got.CompletedAt)
	}

	tests := []struct {
		name    string
		filter  core.PaymentFilter
		wantIDs []string
	}{
		{"all by due date", core.PaymentFilter{}, []string{oneOff.ID, due.ID, later.ID}},
		{"scheduled pending due", core.PaymentFilter{
			Status: core.StatusPending, ScheduledOnly: true, DueBefore: base,
		}, []string{due.ID}},
		{"by user", core.PaymentFilter{UserID: "u2"}, []string{oneOff.ID}},
		{"completed", core.PaymentFilter{Status: core.StatusCompleted}, []string{oneOff.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListPayments(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListPayments() error = %v", err)
			}
			if len(list) != len(tt.wantIDs) {
				t.Fatalf("ListPayments() returned %d payments, want %d", len(list), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if list[i].ID != id {
					t.Errorf("ListPayments()[%d] = %s, want %s", i, list[i].ID, id)
				}
			}
		})
	}

	completed := base.Add(time.Minute)
	got.Status = core.StatusCompleted
	got.CompletedAt = &completed
	got.DeletedAt = &completed
	if err := s.UpdatePayment(ctx, got); err != nil {
		t.Fatalf("UpdatePayment() error = %v", err)
	}
	list, err := s.ListPayments(ctx, core.PaymentFilter{})
	if err != nil {
		t.Fatalf("ListPayments() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("ListPayments() after soft delete = %d, want 2", len(list))
	}

	if _, err := s.GetPayment(ctx, s.NewID()); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetPayment(unknown) error = %v, want ErrNotFound", err)
	}
	missing := oneOff
	missing.ID = s.NewID()
	if err := s.UpdatePayment(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdatePayment(unknown) error = %v, want ErrNotFound", err)
	}
}

func testSummaryVersion(t *testing.T, s storage.Store) {
	ctx := context.Background()

	sum, err := s.GetSummary(ctx)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if sum.Version != 0 || !sum.Profit.IsZero() {
		t.Fatalf("GetSummary() on empty store = %+v, want zero", sum)
	}

	next, err := sum.Apply(core.Delta{Income: core.Cents(1000), Expense: core.Cents(400)})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	next.Version = 1
	next.UpdatedAt = base
	if err := s.PutSummary(ctx, next); err != nil {
		t.Fatalf("PutSummary() error = %v", err)
	}

	got, err := s.GetSummary(ctx)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if got.Profit.Cents != 600 || got.Version != 1 {
		t.Errorf("GetSummary() = %+v, want profit 600 version 1", got)
	}

	// A writer that read version 0 must not overwrite version 1.
	if err := s.PutSummary(ctx, next); !errors.Is(err, core.ErrConflict) {
		t.Errorf("PutSummary() with stale version error = %v, want ErrConflict", err)
	}
}

func testTxRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := entry(s, core.KindIncome, 100, base)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, q storage.Queries) error {
		if err := q.InsertEntry(ctx, e); err != nil {
			return err
		}
		sum, err := q.GetSummary(ctx)
		if err != nil {
			return err
		}
		sum, err = sum.Apply(core.DeltaFor(core.KindIncome, e.Amount))
		if err != nil {
			return err
		}
		sum.Version++
		if err := q.PutSummary(ctx, sum); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want %v", err, boom)
	}

	if _, err := s.GetEntry(ctx, core.KindIncome, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetEntry() after rollback error = %v, want ErrNotFound", err)
	}
	sum, err := s.GetSummary(ctx)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if sum.Version != 0 {
		t.Errorf("summary version after rollback = %d, want 0", sum.Version)
	}

	err = s.WithinTx(ctx, func(ctx context.Context, q storage.Queries) error {
		return q.InsertEntry(ctx, e)
	})
	if err != nil {
		t.Fatalf("WithinTx() commit error = %v", err)
	}
	if _, err := s.GetEntry(ctx, core.KindIncome, e.ID); err != nil {
		t.Errorf("GetEntry() after commit error = %v", err)
	}
}

func testIDs(t *testing.T, s storage.Store) {
	id := s.NewID()
	if err := s.ValidateID(id); err != nil {
		t.Errorf("ValidateID(%q) error = %v", id, err)
	}
	for _, bad := range []string{"", "nope", "123"} {
		if err := s.ValidateID(bad); !errors.Is(err, core.ErrInvalidID) {
			t.Errorf("ValidateID(%q) error = %v, want ErrInvalidID", bad, err)
		}
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
