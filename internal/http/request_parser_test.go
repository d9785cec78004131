package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    error
		wantAmount int64
	}{
		{name: "number amount", body: `{"title":"x","amount":12.345}`, wantAmount: 1235},
		{name: "string amount", body: `{"title":"x","amount":"7.10"}`, wantAmount: 710},
		{name: "negative amount left to validation", body: `{"title":"x","amount":-1}`, wantAmount: -100},
		{name: "amount too large", body: `{"title":"x","amount":"10000000000000.01"}`, wantErr: core.ErrValidation},
		{name: "empty body", body: ``, wantErr: errMalformedBody},
		{name: "not json", body: `title=x`, wantErr: errMalformedBody},
		{name: "unknown field", body: `{"profits":10}`, wantErr: errMalformedBody},
		{name: "trailing data", body: `{"title":"x"}{"title":"y"}`, wantErr: errMalformedBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/incomes", strings.NewReader(tt.body))
			var req entryRequest
			err := decodeJSON(httptest.NewRecorder(), r, &req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("decodeJSON() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeJSON() error = %v", err)
			}
			if req.Amount == nil || req.Amount.Cents != tt.wantAmount {
				t.Errorf("amount = %v, want %d cents", req.Amount, tt.wantAmount)
			}
		})
	}
}

func TestEntryRequest_ToEntry(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	amount := core.Cents(1000)

	tests := []struct {
		name     string
		req      entryRequest
		wantDate time.Time
		wantErr  bool
	}{
		{
			name:     "explicit date",
			req:      entryRequest{Title: " Venta\x00 ", Category: "Ventas", Amount: &amount, Date: "2024-03-01"},
			wantDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "rfc3339 date",
			req:      entryRequest{Title: "Venta", Category: "Ventas", Amount: &amount, Date: "2024-03-01T10:00:00+02:00"},
			wantDate: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "missing date defaults to now",
			req:      entryRequest{Title: "Venta", Category: "Ventas", Amount: &amount},
			wantDate: now,
		},
		{
			name:    "missing amount",
			req:     entryRequest{Title: "Venta", Category: "Ventas"},
			wantErr: true,
		},
		{
			name:    "bad date",
			req:     entryRequest{Title: "Venta", Category: "Ventas", Amount: &amount, Date: "01/03/2024"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.req.toEntry(core.KindIncome, now)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("toEntry() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("toEntry() error = %v", err)
			}
			if !e.Date.Equal(tt.wantDate) {
				t.Errorf("date = %v, want %v", e.Date, tt.wantDate)
			}
			if e.Title != "Venta" {
				t.Errorf("title = %q, want sanitized Venta", e.Title)
			}
			if e.Kind != core.KindIncome {
				t.Errorf("kind = %v, want income", e.Kind)
			}
		})
	}
}

func TestPaymentRequests(t *testing.T) {
	amount := core.Cents(5000)
	p, err := paymentRequest{
		Concept:     "Alquiler",
		Amount:      &amount,
		Status:      "Pending",
		IsScheduled: true,
		Frequency:   " Monthly ",
		DueDate:     "2024-05-31",
		StartDate:   "2024-05-31",
	}.toPayment()
	if err != nil {
		t.Fatalf("toPayment() error = %v", err)
	}
	if p.Frequency != core.Monthly || p.StartDate == nil || !p.DueDate.Equal(*p.StartDate) {
		t.Errorf("payment = %+v", p)
	}

	status := "Completed"
	due := "2024-06-30"
	patch, err := paymentPatchRequest{Status: &status, DueDate: &due}.toPatch()
	if err != nil {
		t.Fatalf("toPatch() error = %v", err)
	}
	if patch.Status == nil || *patch.Status != core.StatusCompleted {
		t.Errorf("status = %v, want Completed", patch.Status)
	}
	if patch.DueDate == nil || patch.DueDate.Day() != 30 {
		t.Errorf("due date = %v", patch.DueDate)
	}
	if patch.Amount != nil || patch.Concept != nil {
		t.Error("absent fields must stay nil")
	}
}

func TestParseEntryFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    core.EntryFilter
		wantErr bool
	}{
		{"empty", url.Values{}, core.EntryFilter{}, false},
		{
			"all fields",
			url.Values{"user_id": {"u1"}, "category": {"Ventas"}, "include_deleted": {"true"}},
			core.EntryFilter{UserID: "u1", Category: "Ventas", IncludeDeleted: true},
			false,
		},
		{"bad bool", url.Values{"include_deleted": {"maybe"}}, core.EntryFilter{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntryFilter(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEntryFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEntryFilter() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePaymentFilter(t *testing.T) {
	got, err := ParsePaymentFilter(url.Values{
		"status":     {"Pending"},
		"scheduled":  {"1"},
		"due_before": {"2024-07-01"},
	})
	if err != nil {
		t.Fatalf("ParsePaymentFilter() error = %v", err)
	}
	if got.Status != core.StatusPending || !got.ScheduledOnly || got.IncludeDeleted {
		t.Errorf("ParsePaymentFilter() = %+v", got)
	}
	if want := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC); !got.DueBefore.Equal(want) {
		t.Errorf("DueBefore = %v, want %v", got.DueBefore, want)
	}

	if _, err := ParsePaymentFilter(url.Values{"due_before": {"tomorrow"}}); !core.IsValidation(err) {
		t.Errorf("ParsePaymentFilter() error = %v, want validation error", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"a\x00b\x07c", "abc"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
