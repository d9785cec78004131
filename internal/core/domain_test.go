package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestEntryValidate(t *testing.T) {
	good := Entry{
		Kind:     KindIncome,
		Title:    "Nómina",
		Amount:   Cents(100000),
		Category: "Salario",
		Date:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zeroAmount := good
	zeroAmount.Amount = Money{}
	if err := zeroAmount.Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(e *Entry)
		want   error
	}{
		{"bad kind", func(e *Entry) { e.Kind = "transfer" }, ErrInvalidKind},
		{"empty title", func(e *Entry) { e.Title = "  " }, ErrEmptyTitle},
		{"negative amount", func(e *Entry) { e.Amount = Cents(-1) }, ErrInvalidAmount},
		{"empty category", func(e *Entry) { e.Category = "" }, ErrEmptyCategory},
		{"zero date", func(e *Entry) { e.Date = time.Time{} }, ErrZeroDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := good
			tc.mutate(&e)
			err := e.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestPaymentValidate(t *testing.T) {
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	good := Payment{Concept: "Luz", Amount: Cents(2500), Method: "card", Status: StatusPending}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Payment{
		{Concept: "", Amount: Cents(1), Status: StatusPending},
		{Concept: "a", Amount: Cents(-5), Status: StatusPending},
		{Concept: "a", Amount: Cents(1), Status: "Paid"},
		{Concept: "a", Amount: Cents(1), Status: StatusPending, Frequency: "hourly"},
		{Concept: "a", Amount: Cents(1), Status: StatusPending, IsScheduled: true},
		{Concept: "a", Amount: Cents(1), Status: StatusPending, DueDate: due, StartDate: ptr(due.AddDate(0, 1, 0))},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestEntryApplyPatch(t *testing.T) {
	e := Entry{Title: "old", Amount: Cents(10), Category: "A", Notes: "keep"}
	e.Apply(EntryPatch{Title: ptr("new"), Amount: ptr(Cents(25))})

	if e.Title != "new" || e.Amount.Cents != 25 {
		t.Fatalf("patch not applied: %+v", e)
	}
	if e.Category != "A" || e.Notes != "keep" {
		t.Fatalf("untouched fields changed: %+v", e)
	}
}

func TestPaymentFilterMatches(t *testing.T) {
	now := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	deleted := now
	p := Payment{UserID: "u1", Status: StatusPending, IsScheduled: true, DueDate: now.AddDate(0, 0, -1)}

	tests := []struct {
		name   string
		filter PaymentFilter
		p      Payment
		want   bool
	}{
		{"empty filter", PaymentFilter{}, p, true},
		{"due bound hit", PaymentFilter{ScheduledOnly: true, DueBefore: now}, p, true},
		{"due in future", PaymentFilter{DueBefore: now.AddDate(0, 0, -2)}, p, false},
		{"other user", PaymentFilter{UserID: "u2"}, p, false},
		{"status mismatch", PaymentFilter{Status: StatusCompleted}, p, false},
		{"deleted excluded", PaymentFilter{}, func() Payment { q := p; q.DeletedAt = &deleted; return q }(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.p); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummaryApply(t *testing.T) {
	apply := func(s Summary, d Delta) Summary {
		t.Helper()
		next, err := s.Apply(d)
		if err != nil {
			t.Fatalf("Apply(%+v) error = %v", d, err)
		}
		return next
	}

	s := Summary{}
	s = apply(s, DeltaFor(KindIncome, Cents(100000)))
	s = apply(s, DeltaFor(KindExpense, Cents(40000)))
	if s.Profit.Cents != 60000 {
		t.Fatalf("expected profit 60000, got %d", s.Profit.Cents)
	}
	s = apply(s, DeltaFor(KindExpense, Cents(40000).Neg()))
	if s.Profit.Cents != 100000 || s.TotalExpense.Cents != 0 {
		t.Fatalf("unexpected summary after removal: %+v", s)
	}
}

func TestSummaryApply_Overflow(t *testing.T) {
	tests := []struct {
		name  string
		start Summary
		delta Delta
	}{
		{
			name:  "income wraps",
			start: Summary{TotalIncome: Cents(math.MaxInt64 - 10)},
			delta: DeltaFor(KindIncome, Cents(11)),
		},
		{
			name:  "expense wraps",
			start: Summary{TotalExpense: Cents(math.MaxInt64)},
			delta: DeltaFor(KindExpense, Cents(1)),
		},
		{
			name:  "profit wraps",
			start: Summary{TotalExpense: Cents(-10)},
			delta: DeltaFor(KindIncome, Cents(math.MaxInt64)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.start.Apply(tt.delta); !errors.Is(err, ErrAmountOverflow) {
				t.Errorf("Apply() error = %v, want ErrAmountOverflow", err)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
