package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"finanzas/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

var _ Queries = (*sqlQueries)(nil)

// sqlQueries implements Queries over plain SQL.
type sqlQueries struct {
	db DBTX
}

func newSQLQueries(db DBTX) *sqlQueries {
	return &sqlQueries{db: db}
}

const entryColumns = `id, user_id, title, concept, amount_cents, source, category, date, notes,
	payment_id, deleted_at, created_at, updated_at`

const paymentColumns = `id, user_id, concept, amount_cents, method, status, is_scheduled, frequency,
	due_date, start_date, completed_at, deleted_at, created_at, updated_at`

func entryTable(kind core.EntryKind) (string, error) {
	switch kind {
	case core.KindIncome:
		return "incomes", nil
	case core.KindExpense:
		return "expenses", nil
	}
	return "", core.ErrInvalidKind
}

func (q *sqlQueries) InsertEntry(ctx context.Context, e core.Entry) error {
	table, err := entryTable(e.Kind)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO `+table+` (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Title, e.Concept, e.Amount.Cents, e.Source, e.Category,
		formatTime(e.Date), e.Notes, nullString(e.PaymentID), formatTimePtr(e.DeletedAt),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", e.Kind, err)
	}
	return nil
}

func (q *sqlQueries) UpdateEntry(ctx context.Context, e core.Entry) error {
	table, err := entryTable(e.Kind)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE `+table+` SET user_id = ?, title = ?, concept = ?, amount_cents = ?, source = ?,
			category = ?, date = ?, notes = ?, payment_id = ?, deleted_at = ?, updated_at = ?
		WHERE id = ?`,
		e.UserID, e.Title, e.Concept, e.Amount.Cents, e.Source, e.Category, formatTime(e.Date),
		e.Notes, nullString(e.PaymentID), formatTimePtr(e.DeletedAt), formatTime(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", e.Kind, err)
	}
	return expectOne(res)
}

func (q *sqlQueries) DeleteEntry(ctx context.Context, kind core.EntryKind, id string) error {
	table, err := entryTable(kind)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return expectOne(res)
}

func (q *sqlQueries) GetEntry(ctx context.Context, kind core.EntryKind, id string) (core.Entry, error) {
	table, err := entryTable(kind)
	if err != nil {
		return core.Entry{}, err
	}
	row := q.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM `+table+` WHERE id = ?`, id)
	e, err := scanEntry(row, kind)
	if err != nil {
		return core.Entry{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return e, nil
}

func (q *sqlQueries) GetEntryByPayment(ctx context.Context, paymentID string) (core.Entry, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM expenses WHERE payment_id = ?`, paymentID)
	e, err := scanEntry(row, core.KindExpense)
	if err != nil {
		return core.Entry{}, fmt.Errorf("get expense by payment %s: %w", paymentID, err)
	}
	return e, nil
}

func (q *sqlQueries) ListEntries(ctx context.Context, kind core.EntryKind, filter core.EntryFilter) ([]core.Entry, error) {
	table, err := entryTable(kind)
	if err != nil {
		return nil, err
	}
	var (
		where []string
		args  []interface{}
	)
	if !filter.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	query := `SELECT ` + entryColumns + ` FROM ` + table + whereClause(where) + ` ORDER BY date DESC, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

func (q *sqlQueries) SumActive(ctx context.Context, kind core.EntryKind) (core.Money, error) {
	table, err := entryTable(kind)
	if err != nil {
		return core.Money{}, err
	}
	var total int64
	err = q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM `+table+` WHERE deleted_at IS NULL`,
	).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum active %s: %w", kind, err)
	}
	return core.Money{Cents: total}, nil
}

func (q *sqlQueries) InsertPayment(ctx context.Context, p core.Payment) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Concept, p.Amount.Cents, p.Method, string(p.Status), p.IsScheduled,
		string(p.Frequency), formatTime(p.DueDate), formatTimePtr(p.StartDate),
		formatTimePtr(p.CompletedAt), formatTimePtr(p.DeletedAt),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (q *sqlQueries) UpdatePayment(ctx context.Context, p core.Payment) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE payments SET user_id = ?, concept = ?, amount_cents = ?, method = ?, status = ?,
			is_scheduled = ?, frequency = ?, due_date = ?, start_date = ?, completed_at = ?,
			deleted_at = ?, updated_at = ?
		WHERE id = ?`,
		p.UserID, p.Concept, p.Amount.Cents, p.Method, string(p.Status), p.IsScheduled,
		string(p.Frequency), formatTime(p.DueDate), formatTimePtr(p.StartDate),
		formatTimePtr(p.CompletedAt), formatTimePtr(p.DeletedAt), formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return expectOne(res)
}

func (q *sqlQueries) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment %s: %w", id, err)
	}
	return p, nil
}

func (q *sqlQueries) ListPayments(ctx context.Context, filter core.PaymentFilter) ([]core.Payment, error) {
	var (
		where []string
		args  []interface{}
	)
	if !filter.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.ScheduledOnly {
		where = append(where, "is_scheduled = 1")
	}
	if !filter.DueBefore.IsZero() {
		where = append(where, "due_date <= ?")
		args = append(args, formatTime(filter.DueBefore))
	}
	query := `SELECT ` + paymentColumns + ` FROM payments` + whereClause(where) + ` ORDER BY due_date, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

func (q *sqlQueries) GetSummary(ctx context.Context) (core.Summary, error) {
	var (
		s         core.Summary
		updatedAt sql.NullString
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT total_income_cents, total_expense_cents, profit_cents, version, updated_at
		FROM ledger_summary WHERE id = 1`,
	).Scan(&s.TotalIncome.Cents, &s.TotalExpense.Cents, &s.Profit.Cents, &s.Version, &updatedAt)
	if err != nil {
		return core.Summary{}, fmt.Errorf("get summary: %w", err)
	}
	if t, err := parseTimePtr(updatedAt); err == nil && t != nil {
		s.UpdatedAt = *t
	}
	return s, nil
}

func (q *sqlQueries) PutSummary(ctx context.Context, s core.Summary) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE ledger_summary SET total_income_cents = ?, total_expense_cents = ?, profit_cents = ?,
			version = ?, updated_at = ?
		WHERE id = 1 AND version = ?`,
		s.TotalIncome.Cents, s.TotalExpense.Cents, s.Profit.Cents, s.Version,
		formatTime(s.UpdatedAt), s.Version-1,
	)
	if err != nil {
		return fmt.Errorf("put summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("put summary: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: version %d", core.ErrConflict, s.Version)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner, kind core.EntryKind) (core.Entry, error) {
	var (
		e                    core.Entry
		date, created, upd   string
		paymentID, deletedAt sql.NullString
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Concept, &e.Amount.Cents, &e.Source, &e.Category,
		&date, &e.Notes, &paymentID, &deletedAt, &created, &upd)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, err
	}
	e.Kind = kind
	e.PaymentID = paymentID.String
	if e.Date, err = parseTime(date); err != nil {
		return core.Entry{}, err
	}
	if e.DeletedAt, err = parseTimePtr(deletedAt); err != nil {
		return core.Entry{}, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return core.Entry{}, err
	}
	if e.UpdatedAt, err = parseTime(upd); err != nil {
		return core.Entry{}, err
	}
	return e, nil
}

func scanPayment(row scanner) (core.Payment, error) {
	var (
		p                                    core.Payment
		status, frequency, due, created, upd string
		startDate, completedAt, deletedAt    sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Concept, &p.Amount.Cents, &p.Method, &status, &p.IsScheduled,
		&frequency, &due, &startDate, &completedAt, &deletedAt, &created, &upd)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, core.ErrNotFound
	}
	if err != nil {
		return core.Payment{}, err
	}
	p.Status = core.PaymentStatus(status)
	p.Frequency = core.Frequency(frequency)
	if p.DueDate, err = parseTime(due); err != nil {
		return core.Payment{}, err
	}
	if p.StartDate, err = parseTimePtr(startDate); err != nil {
		return core.Payment{}, err
	}
	if p.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return core.Payment{}, err
	}
	if p.DeletedAt, err = parseTimePtr(deletedAt); err != nil {
		return core.Payment{}, err
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return core.Payment{}, err
	}
	if p.UpdatedAt, err = parseTime(upd); err != nil {
		return core.Payment{}, err
	}
	return p, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Times are stored as fixed-width UTC text so that lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
