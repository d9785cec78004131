package services

import (
	"testing"
	"time"

	"finanzas/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestDailyCalculator_NextDue(t *testing.T) {
	tests := []struct {
		name string
		due  time.Time
		want time.Time
	}{
		{"mid month", date(2024, 1, 15), date(2024, 1, 16)},
		{"end of month", date(2024, 1, 31), date(2024, 2, 1)},
		{"end of year", date(2024, 12, 31), date(2025, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DailyCalculator{}.NextDue(tt.due, tt.due)
			if !got.Equal(tt.want) {
				t.Errorf("DailyCalculator.NextDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeeklyCalculator_NextDue(t *testing.T) {
	got := WeeklyCalculator{}.NextDue(date(2024, 2, 26), date(2024, 1, 1))
	if want := date(2024, 3, 4); !got.Equal(want) {
		t.Errorf("WeeklyCalculator.NextDue() = %v, want %v", got, want)
	}
}

func TestMonthlyCalculator_NextDue(t *testing.T) {
	tests := []struct {
		name   string
		due    time.Time
		anchor time.Time
		want   time.Time
	}{
		{"regular month", date(2024, 3, 10), date(2024, 1, 10), date(2024, 4, 10)},
		{"31st into leap february", date(2024, 1, 31), date(2024, 1, 31), date(2024, 2, 29)},
		{"back to 31st after february", date(2024, 2, 29), date(2024, 1, 31), date(2024, 3, 31)},
		{"31st into 30-day month", date(2024, 3, 31), date(2024, 1, 31), date(2024, 4, 30)},
		{"31st into non-leap february", date(2023, 1, 31), date(2023, 1, 31), date(2023, 2, 28)},
		{"december rolls the year", date(2024, 12, 15), date(2024, 1, 15), date(2025, 1, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyCalculator{}.NextDue(tt.due, tt.anchor)
			if !got.Equal(tt.want) {
				t.Errorf("MonthlyCalculator.NextDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYearlyCalculator_NextDue(t *testing.T) {
	tests := []struct {
		name   string
		due    time.Time
		anchor time.Time
		want   time.Time
	}{
		{"regular", date(2024, 6, 1), date(2020, 6, 1), date(2025, 6, 1)},
		{"leap day clamps", date(2024, 2, 29), date(2024, 2, 29), date(2025, 2, 28)},
		{"leap day returns in leap year", date(2027, 2, 28), date(2024, 2, 29), date(2028, 2, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearlyCalculator{}.NextDue(tt.due, tt.anchor)
			if !got.Equal(tt.want) {
				t.Errorf("YearlyCalculator.NextDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetNextDueCalculator(t *testing.T) {
	tests := []struct {
		frequency core.Frequency
		want      NextDueCalculator
		wantErr   bool
	}{
		{core.Daily, DailyCalculator{}, false},
		{core.Weekly, WeeklyCalculator{}, false},
		{core.Monthly, MonthlyCalculator{}, false},
		{core.Yearly, YearlyCalculator{}, false},
		{"", nil, true},
		{"hourly", nil, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			got, err := GetNextDueCalculator(tt.frequency)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetNextDueCalculator(%q) error = %v, wantErr %v", tt.frequency, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GetNextDueCalculator(%q) = %T, want %T", tt.frequency, got, tt.want)
			}
		})
	}
}
