// Package memory is an in-process storage backend. Units of work run on a
// copy of the state which replaces the live state only when they succeed.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	incomes  map[string]core.Entry
	expenses map[string]core.Entry
	payments map[string]core.Payment
	summary  core.Summary
}

func New() *Store {
	return &Store{state: &state{
		incomes:  map[string]core.Entry{},
		expenses: map[string]core.Entry{},
		payments: map[string]core.Payment{},
	}}
}

func (st *state) clone() *state {
	return &state{
		incomes:  maps.Clone(st.incomes),
		expenses: maps.Clone(st.expenses),
		payments: maps.Clone(st.payments),
		summary:  st.summary,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, q storage.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(ctx, &view{st: draft}); err != nil {
		return err
	}
	s.state = draft
	return nil
}

func (s *Store) NewID() string { return uuid.NewString() }

func (s *Store) ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidID, id)
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// live runs fn against the committed state under the lock.
func live[T any](s *Store, fn func(v *view) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&view{st: s.state})
}

func (s *Store) InsertEntry(ctx context.Context, e core.Entry) error {
	_, err := live(s, func(v *view) (struct{}, error) { return struct{}{}, v.InsertEntry(ctx, e) })
	return err
}

func (s *Store) UpdateEntry(ctx context.Context, e core.Entry) error {
	_, err := live(s, func(v *view) (struct{}, error) { return struct{}{}, v.UpdateEntry(ctx, e) })
	return err
}

func (s *Store) DeleteEntry(ctx context.Context, kind core.EntryKind, id string) error {
	_, err := live(s, func(v *view) (struct{}, error) { return struct{}{}, v.DeleteEntry(ctx, kind, id) })
	return err
}

func (s *Store) GetEntry(ctx context.Context, kind core.EntryKind, id string) (core.Entry, error) {
	return live(s, func(v *view) (core.Entry, error) { return v.GetEntry(ctx, kind, id) })
}

func (s *Store) GetEntryByPayment(ctx context.Context, paymentID string) (core.Entry, error) {
	return live(s, func(v *view) (core.Entry, error) { return v.GetEntryByPayment(ctx, paymentID) })
}

func (s *Store) ListEntries(ctx context.Context, kind core.EntryKind, filter core.EntryFilter) ([]core.Entry, error) {
	return live(s, func(v *view) ([]core.Entry, error) { return v.ListEntries(ctx, kind, filter) })
}

func (s *Store) SumActive(ctx context.Context, kind core.EntryKind) (core.Money, error) {
	return live(s, func(v *view) (core.Money, error) { return v.SumActive(ctx, kind) })
}

func (s *Store) InsertPayment(ctx context.Context, p core.Payment) error {
	_, err := live(s, func(v *view) (struct{}, error) { return struct{}{}, v.InsertPayment(ctx, p) })
	return err
}

func (s *Store) UpdatePayment(ctx context.Context, p core.Payment) error {
	_, err := live(s, func(v *view) (struct{}, error) { return struct{}{}, v.UpdatePayment(ctx, p) })
	return err
}

func (s *Store) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	return live(s, func(v *view) (core.Payment, error) { return v.GetPayment(ctx, id) })
}

func (s *Store) ListPayments(ctx context.Context, filter core.PaymentFilter) ([]core.Payment, error) {
	return live(s, func(v *view) ([]core.Payment, error) { return v.ListPayments(ctx, filter) })
}

func (s *Store) GetSummary(ctx context.Context) (core.Summary, error) {
	return live(s, func(v *view) (core.Summary, error) { return v.GetSummary(ctx) })
}

func (s *Store) PutSummary(ctx context.Context, sum core.Summary) error {
	_, err := live(s, func(v *view) (struct{}, error) { return struct{}{}, v.PutSummary(ctx, sum) })
	return err
}

// view implements storage.Queries over one state snapshot. Callers hold the lock.
type view struct {
	st *state
}

func (v *view) entries(kind core.EntryKind) (map[string]core.Entry, error) {
	switch kind {
	case core.KindIncome:
		return v.st.incomes, nil
	case core.KindExpense:
		return v.st.expenses, nil
	}
	return nil, core.ErrInvalidKind
}

func (v *view) InsertEntry(_ context.Context, e core.Entry) error {
	m, err := v.entries(e.Kind)
	if err != nil {
		return err
	}
	if _, exists := m[e.ID]; exists {
		return fmt.Errorf("insert %s %s: already exists", e.Kind, e.ID)
	}
	if e.PaymentID != "" {
		if _, err := v.GetEntryByPayment(context.Background(), e.PaymentID); err == nil {
			return fmt.Errorf("insert %s: payment %s already mirrored", e.Kind, e.PaymentID)
		}
	}
	m[e.ID] = e
	return nil
}

func (v *view) UpdateEntry(_ context.Context, e core.Entry) error {
	m, err := v.entries(e.Kind)
	if err != nil {
		return err
	}
	if _, exists := m[e.ID]; !exists {
		return core.ErrNotFound
	}
	m[e.ID] = e
	return nil
}

func (v *view) DeleteEntry(_ context.Context, kind core.EntryKind, id string) error {
	m, err := v.entries(kind)
	if err != nil {
		return err
	}
	if _, exists := m[id]; !exists {
		return core.ErrNotFound
	}
	delete(m, id)
	return nil
}

func (v *view) GetEntry(_ context.Context, kind core.EntryKind, id string) (core.Entry, error) {
	m, err := v.entries(kind)
	if err != nil {
		return core.Entry{}, err
	}
	e, ok := m[id]
	if !ok {
		return core.Entry{}, core.ErrNotFound
	}
	return e, nil
}

func (v *view) GetEntryByPayment(_ context.Context, paymentID string) (core.Entry, error) {
	for _, e := range v.st.expenses {
		if e.PaymentID == paymentID {
			return e, nil
		}
	}
	return core.Entry{}, core.ErrNotFound
}

func (v *view) ListEntries(_ context.Context, kind core.EntryKind, filter core.EntryFilter) ([]core.Entry, error) {
	m, err := v.entries(kind)
	if err != nil {
		return nil, err
	}
	out := make([]core.Entry, 0, len(m))
	for _, e := range m {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b core.Entry) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return -c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (v *view) SumActive(_ context.Context, kind core.EntryKind) (core.Money, error) {
	m, err := v.entries(kind)
	if err != nil {
		return core.Money{}, err
	}
	var total core.Money
	for _, e := range m {
		if !e.IsActive() {
			continue
		}
		if total, err = total.CheckedAdd(e.Amount); err != nil {
			return core.Money{}, fmt.Errorf("sum active %s: %w", kind, err)
		}
	}
	return total, nil
}

func (v *view) InsertPayment(_ context.Context, p core.Payment) error {
	if _, exists := v.st.payments[p.ID]; exists {
		return fmt.Errorf("insert payment %s: already exists", p.ID)
	}
	v.st.payments[p.ID] = p
	return nil
}

func (v *view) UpdatePayment(_ context.Context, p core.Payment) error {
	if _, exists := v.st.payments[p.ID]; !exists {
		return core.ErrNotFound
	}
	v.st.payments[p.ID] = p
	return nil
}

func (v *view) GetPayment(_ context.Context, id string) (core.Payment, error) {
	p, ok := v.st.payments[id]
	if !ok {
		return core.Payment{}, core.ErrNotFound
	}
	return p, nil
}

func (v *view) ListPayments(_ context.Context, filter core.PaymentFilter) ([]core.Payment, error) {
	out := make([]core.Payment, 0, len(v.st.payments))
	for _, p := range v.st.payments {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b core.Payment) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (v *view) GetSummary(context.Context) (core.Summary, error) {
	return v.st.summary, nil
}

func (v *view) PutSummary(_ context.Context, s core.Summary) error {
	if s.Version != v.st.summary.Version+1 {
		return fmt.Errorf("%w: stored %d, writing %d", core.ErrConflict, v.st.summary.Version, s.Version)
	}
	v.st.summary = s
	return nil
}
