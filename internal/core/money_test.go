package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var payload struct {
		Amount Money `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount": "12.345"}`), &payload); err != nil {
		t.Fatalf("unmarshal quoted: %v", err)
	}
	if payload.Amount.Cents != 1235 {
		t.Fatalf("expected 1235 cents, got %d", payload.Amount.Cents)
	}
	if err := json.Unmarshal([]byte(`{"amount": 250}`), &payload); err != nil || payload.Amount.Cents != 25000 {
		t.Fatalf("unmarshal number: cents=%d err=%v", payload.Amount.Cents, err)
	}
	if err := json.Unmarshal([]byte(`{"amount": 10000000000000.01}`), &payload); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}

	out, err := json.Marshal(struct {
		Profit Money `json:"profit"`
	}{Cents(-1230)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"profit":-12.30}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestMoneyJSON_RoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 1230, -1, -30000, MaxAmountCents, -MaxAmountCents} {
		data, err := json.Marshal(Cents(cents))
		if err != nil {
			t.Fatalf("marshal %d: %v", cents, err)
		}
		var got Money
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got.Cents != cents {
			t.Errorf("round trip of %d gave %d (json %s)", cents, got.Cents, data)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	cases := []struct {
		cents int64
		want  error
	}{
		{0, nil},
		{MaxAmountCents, nil},
		{-1, ErrInvalidAmount},
		{MaxAmountCents + 1, ErrAmountTooLarge},
	}
	for _, tc := range cases {
		if err := Cents(tc.cents).Validate(); err != tc.want {
			t.Errorf("Validate(%d) = %v, want %v", tc.cents, err, tc.want)
		}
	}
}

func TestMoneyCheckedArithmetic(t *testing.T) {
	if _, err := Cents(math.MaxInt64).CheckedAdd(Cents(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("CheckedAdd past MaxInt64 error = %v, want ErrAmountOverflow", err)
	}
	if _, err := Cents(math.MinInt64).CheckedAdd(Cents(-1)); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("CheckedAdd past MinInt64 error = %v, want ErrAmountOverflow", err)
	}
	if _, err := Cents(0).CheckedSub(Cents(math.MinInt64)); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("CheckedSub of MinInt64 error = %v, want ErrAmountOverflow", err)
	}
	got, err := Cents(500).CheckedSub(Cents(800))
	if err != nil || got.Cents != -300 {
		t.Errorf("CheckedSub() = %d, %v, want -300", got.Cents, err)
	}
}
