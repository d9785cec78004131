package core

import (
	"fmt"
	"time"
)

// Summary is the single aggregate record of the ledger.
type Summary struct {
	TotalIncome  Money
	TotalExpense Money
	Profit       Money
	// Version increases by one on every write and guards concurrent writers.
	Version   int64
	UpdatedAt time.Time
}

// Delta is the change a mutation brings to the active totals.
type Delta struct {
	Income  Money
	Expense Money
}

// DeltaFor returns the delta of adding amount to the active set of kind.
// Use amount.Neg() for removals.
func DeltaFor(kind EntryKind, amount Money) Delta {
	if kind == KindIncome {
		return Delta{Income: amount}
	}
	return Delta{Expense: amount}
}

func (d Delta) Add(o Delta) Delta {
	return Delta{Income: d.Income.Add(o.Income), Expense: d.Expense.Add(o.Expense)}
}

func (d Delta) IsZero() bool {
	return d.Income.IsZero() && d.Expense.IsZero()
}

// Apply returns the summary with d folded into its totals, or
// ErrAmountOverflow when a total leaves the int64 range.
// Version and UpdatedAt are left to the writer.
func (s Summary) Apply(d Delta) (Summary, error) {
	var err error
	if s.TotalIncome, err = s.TotalIncome.CheckedAdd(d.Income); err != nil {
		return Summary{}, fmt.Errorf("total income: %w", err)
	}
	if s.TotalExpense, err = s.TotalExpense.CheckedAdd(d.Expense); err != nil {
		return Summary{}, fmt.Errorf("total expense: %w", err)
	}
	if s.Profit, err = s.TotalIncome.CheckedSub(s.TotalExpense); err != nil {
		return Summary{}, fmt.Errorf("profit: %w", err)
	}
	return s, nil
}

// SameTotals reports whether both summaries describe the same aggregate.
func (s Summary) SameTotals(o Summary) bool {
	return s.TotalIncome == o.TotalIncome &&
		s.TotalExpense == o.TotalExpense &&
		s.Profit == o.Profit
}

// WithProfits returns a copy of e carrying the current profit.
func (s Summary) WithProfits(e Entry) Entry {
	e.Profits = s.Profit
	return e
}
