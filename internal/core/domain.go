package core

import (
	"strings"
	"time"
)

const (
	KindIncome  EntryKind = "income"
	KindExpense EntryKind = "expense"
)

const (
	StatusPending   PaymentStatus = "Pending"
	StatusCompleted PaymentStatus = "Completed"
	StatusCancelled PaymentStatus = "Cancelled"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// PaymentsCategory is the category given to expenses mirrored from completed payments.
const PaymentsCategory = "Pagos"

const maxTextLength = 200

type (
	EntryKind     string
	PaymentStatus string
	Frequency     string

	// Entry is an income or expense record. Both kinds share the same shape and
	// are stored in separate record sets.
	Entry struct {
		ID       string
		Kind     EntryKind
		UserID   string
		Title    string
		Concept  string
		Amount   Money
		Source   string
		Category string
		Date     time.Time
		Notes    string
		// PaymentID references the payment an expense was mirrored from.
		PaymentID string
		DeletedAt *time.Time
		// Profits is derived from the ledger summary and is never user-settable.
		Profits   Money
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// EntryPatch holds a partial update; nil fields are left untouched.
	EntryPatch struct {
		UserID   *string
		Title    *string
		Concept  *string
		Amount   *Money
		Source   *string
		Category *string
		Date     *time.Time
		Notes    *string
	}

	Payment struct {
		ID          string
		UserID      string
		Concept     string
		Amount      Money
		Method      string
		Status      PaymentStatus
		IsScheduled bool
		Frequency   Frequency
		DueDate     time.Time
		StartDate   *time.Time
		CompletedAt *time.Time
		DeletedAt   *time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	PaymentPatch struct {
		UserID      *string
		Concept     *string
		Amount      *Money
		Method      *string
		Status      *PaymentStatus
		IsScheduled *bool
		Frequency   *Frequency
		DueDate     *time.Time
		StartDate   *time.Time
	}

	EntryFilter struct {
		UserID         string
		Category       string
		IncludeDeleted bool
	}

	PaymentFilter struct {
		UserID         string
		Status         PaymentStatus
		ScheduledOnly  bool
		DueBefore      time.Time // zero means no bound
		IncludeDeleted bool
	}
)

func (k EntryKind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsValid accepts the empty frequency, meaning a one-off payment.
func (f Frequency) IsValid() bool {
	switch f {
	case "", Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// IsActive reports whether the entry takes part in the profit aggregate.
func (e Entry) IsActive() bool {
	return e.DeletedAt == nil
}

func (p Payment) IsActive() bool {
	return p.DeletedAt == nil
}

func (p Payment) IsCompleted() bool {
	return p.Status == StatusCompleted
}

func (e Entry) Validate() error {
	if !e.Kind.IsValid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > maxTextLength || len(e.Concept) > maxTextLength {
		return ValidationError{Field: "title", Message: "too long (max 200 characters)"}
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.Concept) == "" {
		return ErrEmptyConcept
	}
	if len(p.Concept) > maxTextLength {
		return ValidationError{Field: "concept", Message: "too long (max 200 characters)"}
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	if !p.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if p.IsScheduled && p.DueDate.IsZero() {
		return ValidationError{Field: "dueDate", Message: "required for scheduled payments"}
	}
	if p.StartDate != nil && !p.DueDate.IsZero() && p.DueDate.Before(*p.StartDate) {
		return ValidationError{Field: "dueDate", Message: "must not be before startDate"}
	}
	return nil
}

// Apply merges the non-nil fields of patch into e.
func (e *Entry) Apply(patch EntryPatch) {
	if patch.UserID != nil {
		e.UserID = *patch.UserID
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Concept != nil {
		e.Concept = *patch.Concept
	}
	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.Source != nil {
		e.Source = *patch.Source
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
}

// Apply merges the non-nil fields of patch into p.
func (p *Payment) Apply(patch PaymentPatch) {
	if patch.UserID != nil {
		p.UserID = *patch.UserID
	}
	if patch.Concept != nil {
		p.Concept = *patch.Concept
	}
	if patch.Amount != nil {
		p.Amount = *patch.Amount
	}
	if patch.Method != nil {
		p.Method = *patch.Method
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.IsScheduled != nil {
		p.IsScheduled = *patch.IsScheduled
	}
	if patch.Frequency != nil {
		p.Frequency = *patch.Frequency
	}
	if patch.DueDate != nil {
		p.DueDate = *patch.DueDate
	}
	if patch.StartDate != nil {
		p.StartDate = patch.StartDate
	}
}

// Matches reports whether e satisfies the filter.
func (f EntryFilter) Matches(e Entry) bool {
	if !f.IncludeDeleted && !e.IsActive() {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	return true
}

// Matches reports whether p satisfies the filter.
func (f PaymentFilter) Matches(p Payment) bool {
	if !f.IncludeDeleted && !p.IsActive() {
		return false
	}
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.ScheduledOnly && !p.IsScheduled {
		return false
	}
	if !f.DueBefore.IsZero() && p.DueDate.After(f.DueBefore) {
		return false
	}
	return true
}
