package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	logger.InfoContext(context.Background(), "entry created", FieldEntityID, "abc")
	logger.WithComponent(ComponentPayments).DebugContext(context.Background(), "payment completed")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "entity_id=abc") {
		t.Errorf("missing ledger fields in %q", out)
	}
	if !strings.Contains(out, "component=payments") {
		t.Errorf("missing payments component in %q", out)
	}
}

func TestFields(t *testing.T) {
	fields := NewFields().
		WithEntry("income", "id-1", 1250, "Ventas").
		WithSummary(1250, 3).
		WithError(nil).
		WithError(errors.New("boom"))

	if fields[FieldKind] != "income" || fields[FieldAmountCents] != int64(1250) {
		t.Errorf("entry fields = %v", fields)
	}
	if fields[FieldVersion] != int64(3) {
		t.Errorf("version = %v, want 3", fields[FieldVersion])
	}
	if fields[FieldCategory] != "Ventas" || fields[FieldProfitCents] != int64(1250) {
		t.Errorf("category/profit fields = %v", fields)
	}
	if fields[FieldError] != "boom" {
		t.Errorf("error = %v, want boom", fields[FieldError])
	}
	if got := len(fields.ToSlice()); got != 2*len(fields) {
		t.Errorf("ToSlice() len = %d, want %d", got, 2*len(fields))
	}

	payment := NewFields().WithComponent(ComponentPayments).WithPayment("p-1", 500, "Completed")
	if payment[FieldStatus] != "Completed" || payment[FieldComponent] != ComponentPayments {
		t.Errorf("payment fields = %v", payment)
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Output: &buf})

	var seen *Logger
	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/incomes/x", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("request id header = %q, want req-42", rec.Header().Get(RequestIDHeader))
	}
	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("handler logger = %+v, want http component", seen)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "status_code=404") || !strings.Contains(out, "request_id=req-42") {
		t.Errorf("unexpected request log %q", out)
	}
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	logger := New(Config{Output: &bytes.Buffer{}})
	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("request id header not generated")
	}
}

func TestFromContext_Default(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Errorf("FromContext() component = %q, want unknown", got)
	}
}
