package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"finanzas/internal/core"
)

// ==================== Entry models ====================

type entryModel struct {
	ID          bson.ObjectID `bson:"_id"`
	UserID      string        `bson:"user_id"`
	Title       string        `bson:"title"`
	Concept     string        `bson:"concept"`
	AmountCents int64         `bson:"amount_cents"`
	Source      string        `bson:"source"`
	Category    string        `bson:"category"`
	Date        time.Time     `bson:"date"`
	Notes       string        `bson:"notes,omitempty"`
	PaymentID   string        `bson:"payment_id,omitempty"`
	DeletedAt   *time.Time    `bson:"deleted_at,omitempty"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

func toEntryModel(e core.Entry) (*entryModel, error) {
	oid, err := parseID(e.ID)
	if err != nil {
		return nil, err
	}
	return &entryModel{
		ID:          oid,
		UserID:      e.UserID,
		Title:       e.Title,
		Concept:     e.Concept,
		AmountCents: e.Amount.Cents,
		Source:      e.Source,
		Category:    e.Category,
		Date:        e.Date.UTC(),
		Notes:       e.Notes,
		PaymentID:   e.PaymentID,
		DeletedAt:   utcPtr(e.DeletedAt),
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}, nil
}

func fromEntryModel(m *entryModel, kind core.EntryKind) core.Entry {
	return core.Entry{
		ID:        m.ID.Hex(),
		Kind:      kind,
		UserID:    m.UserID,
		Title:     m.Title,
		Concept:   m.Concept,
		Amount:    core.Cents(m.AmountCents),
		Source:    m.Source,
		Category:  m.Category,
		Date:      m.Date,
		Notes:     m.Notes,
		PaymentID: m.PaymentID,
		DeletedAt: m.DeletedAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ==================== Payment models ====================

type paymentModel struct {
	ID          bson.ObjectID `bson:"_id"`
	UserID      string        `bson:"user_id"`
	Concept     string        `bson:"concept"`
	AmountCents int64         `bson:"amount_cents"`
	Method      string        `bson:"method"`
	Status      string        `bson:"status"`
	IsScheduled bool          `bson:"is_scheduled"`
	Frequency   string        `bson:"frequency,omitempty"`
	DueDate     time.Time     `bson:"due_date"`
	StartDate   *time.Time    `bson:"start_date,omitempty"`
	CompletedAt *time.Time    `bson:"completed_at,omitempty"`
	DeletedAt   *time.Time    `bson:"deleted_at,omitempty"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

func toPaymentModel(p core.Payment) (*paymentModel, error) {
	oid, err := parseID(p.ID)
	if err != nil {
		return nil, err
	}
	return &paymentModel{
		ID:          oid,
		UserID:      p.UserID,
		Concept:     p.Concept,
		AmountCents: p.Amount.Cents,
		Method:      p.Method,
		Status:      string(p.Status),
		IsScheduled: p.IsScheduled,
		Frequency:   string(p.Frequency),
		DueDate:     p.DueDate.UTC(),
		StartDate:   utcPtr(p.StartDate),
		CompletedAt: utcPtr(p.CompletedAt),
		DeletedAt:   utcPtr(p.DeletedAt),
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}, nil
}

func fromPaymentModel(m *paymentModel) core.Payment {
	return core.Payment{
		ID:          m.ID.Hex(),
		UserID:      m.UserID,
		Concept:     m.Concept,
		Amount:      core.Cents(m.AmountCents),
		Method:      m.Method,
		Status:      core.PaymentStatus(m.Status),
		IsScheduled: m.IsScheduled,
		Frequency:   core.Frequency(m.Frequency),
		DueDate:     m.DueDate,
		StartDate:   m.StartDate,
		CompletedAt: m.CompletedAt,
		DeletedAt:   m.DeletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ==================== Summary model ====================

// summaryID is the _id of the single summary document.
const summaryID = "ledger"

type summaryModel struct {
	ID                string    `bson:"_id"`
	TotalIncomeCents  int64     `bson:"total_income_cents"`
	TotalExpenseCents int64     `bson:"total_expense_cents"`
	ProfitCents       int64     `bson:"profit_cents"`
	Version           int64     `bson:"version"`
	UpdatedAt         time.Time `bson:"updated_at,omitempty"`
}

func fromSummaryModel(m *summaryModel) core.Summary {
	return core.Summary{
		TotalIncome:  core.Cents(m.TotalIncomeCents),
		TotalExpense: core.Cents(m.TotalExpenseCents),
		Profit:       core.Cents(m.ProfitCents),
		Version:      m.Version,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ==================== Helpers ====================

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: %q", core.ErrInvalidID, id)
	}
	return oid, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
