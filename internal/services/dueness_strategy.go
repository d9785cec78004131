// This file implements the Strategy Pattern for scheduled payment recurrence.
// Each frequency (daily, weekly, monthly, yearly) has its own strategy that
// computes when the next occurrence of a payment falls due.

package services

import (
	"fmt"
	"time"

	"finanzas/internal/core"
)

// NextDueCalculator is the strategy interface for advancing a scheduled payment.
type NextDueCalculator interface {
	// NextDue returns the due date following due. anchor is the first due date
	// of the series; monthly and yearly strategies keep its day of month.
	NextDue(due, anchor time.Time) time.Time
}

// DailyCalculator advances by one calendar day.
type DailyCalculator struct{}

func (DailyCalculator) NextDue(due, _ time.Time) time.Time {
	return due.AddDate(0, 0, 1)
}

// WeeklyCalculator advances by seven days.
type WeeklyCalculator struct{}

func (WeeklyCalculator) NextDue(due, _ time.Time) time.Time {
	return due.AddDate(0, 0, 7)
}

// MonthlyCalculator moves to the anchor's day in the following month,
// clamped to the last day of shorter months (Jan 31 -> Feb 29 -> Mar 31).
type MonthlyCalculator struct{}

func (MonthlyCalculator) NextDue(due, anchor time.Time) time.Time {
	year, month, _ := due.Date()
	return clampedDate(year, month+1, anchor.Day(), due)
}

// YearlyCalculator moves to the anchor's month and day in the following year,
// clamping Feb 29 to Feb 28 outside leap years.
type YearlyCalculator struct{}

func (YearlyCalculator) NextDue(due, anchor time.Time) time.Time {
	return clampedDate(due.Year()+1, anchor.Month(), anchor.Day(), due)
}

// clampedDate builds year/month/day with the clock and location of ref,
// using the month's last day when day does not exist in it.
func clampedDate(year int, month time.Month, day int, ref time.Time) time.Time {
	// Normalise month overflow (December + 1) before measuring the month.
	first := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day,
		ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
}

// nextDueStrategies maps frequencies to their calculators.
var nextDueStrategies = map[core.Frequency]NextDueCalculator{
	core.Daily:   DailyCalculator{},
	core.Weekly:  WeeklyCalculator{},
	core.Monthly: MonthlyCalculator{},
	core.Yearly:  YearlyCalculator{},
}

// GetNextDueCalculator returns the calculator for frequency.
func GetNextDueCalculator(frequency core.Frequency) (NextDueCalculator, error) {
	calc, ok := nextDueStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %q", frequency)
	}
	return calc, nil
}
