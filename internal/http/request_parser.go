// Package http provides HTTP server and handler implementations.
//
// This file decodes JSON request bodies into domain values and parses list
// filters from query strings.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/core"
)

const maxBodyBytes = 1 << 20

// errMalformedBody is returned for bodies that are not the expected JSON.
var errMalformedBody = errors.New("malformed request body")

type entryRequest struct {
	UserID   string      `json:"userId"`
	Title    string      `json:"title"`
	Concept  string      `json:"concept"`
	Amount   *core.Money `json:"amount"`
	Source   string      `json:"source"`
	Category string      `json:"category"`
	Date     string      `json:"date"`
	Notes    string      `json:"notes"`
}

type entryPatchRequest struct {
	UserID   *string     `json:"userId"`
	Title    *string     `json:"title"`
	Concept  *string     `json:"concept"`
	Amount   *core.Money `json:"amount"`
	Source   *string     `json:"source"`
	Category *string     `json:"category"`
	Date     *string     `json:"date"`
	Notes    *string     `json:"notes"`
}

type paymentRequest struct {
	UserID      string      `json:"userId"`
	Concept     string      `json:"concept"`
	Amount      *core.Money `json:"amount"`
	Method      string      `json:"method"`
	Status      string      `json:"status"`
	IsScheduled bool        `json:"isScheduled"`
	Frequency   string      `json:"frequency"`
	DueDate     string      `json:"dueDate"`
	StartDate   string      `json:"startDate"`
}

type paymentPatchRequest struct {
	UserID      *string     `json:"userId"`
	Concept     *string     `json:"concept"`
	Amount      *core.Money `json:"amount"`
	Method      *string     `json:"method"`
	Status      *string     `json:"status"`
	IsScheduled *bool       `json:"isScheduled"`
	Frequency   *string     `json:"frequency"`
	DueDate     *string     `json:"dueDate"`
	StartDate   *string     `json:"startDate"`
}

// decodeJSON reads a single JSON object from the request body into dst.
// Amount errors surface as validation errors; anything else is errMalformedBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errMalformedBody)
	}
	return nil
}

// toEntry builds a new entry of kind. An empty date means today.
func (req entryRequest) toEntry(kind core.EntryKind, now time.Time) (core.Entry, error) {
	if req.Amount == nil {
		return core.Entry{}, core.ValidationError{Field: "amount", Message: "is required"}
	}
	date := now.UTC()
	if strings.TrimSpace(req.Date) != "" {
		d, err := parseDate("date", req.Date)
		if err != nil {
			return core.Entry{}, err
		}
		date = d
	}
	return core.Entry{
		Kind:     kind,
		UserID:   sanitizeInput(req.UserID),
		Title:    sanitizeInput(req.Title),
		Concept:  sanitizeInput(req.Concept),
		Amount:   *req.Amount,
		Source:   sanitizeInput(req.Source),
		Category: sanitizeInput(req.Category),
		Date:     date,
		Notes:    sanitizeInput(req.Notes),
	}, nil
}

func (req entryPatchRequest) toPatch() (core.EntryPatch, error) {
	patch := core.EntryPatch{
		UserID:   sanitizePtr(req.UserID),
		Title:    sanitizePtr(req.Title),
		Concept:  sanitizePtr(req.Concept),
		Amount:   req.Amount,
		Source:   sanitizePtr(req.Source),
		Category: sanitizePtr(req.Category),
		Notes:    sanitizePtr(req.Notes),
	}
	if req.Date != nil {
		d, err := parseDate("date", *req.Date)
		if err != nil {
			return core.EntryPatch{}, err
		}
		patch.Date = &d
	}
	return patch, nil
}

func (req paymentRequest) toPayment() (core.Payment, error) {
	if req.Amount == nil {
		return core.Payment{}, core.ValidationError{Field: "amount", Message: "is required"}
	}
	p := core.Payment{
		UserID:      sanitizeInput(req.UserID),
		Concept:     sanitizeInput(req.Concept),
		Amount:      *req.Amount,
		Method:      sanitizeInput(req.Method),
		Status:      core.PaymentStatus(strings.TrimSpace(req.Status)),
		IsScheduled: req.IsScheduled,
		Frequency:   core.Frequency(strings.ToLower(strings.TrimSpace(req.Frequency))),
	}
	if strings.TrimSpace(req.DueDate) != "" {
		d, err := parseDate("dueDate", req.DueDate)
		if err != nil {
			return core.Payment{}, err
		}
		p.DueDate = d
	}
	if strings.TrimSpace(req.StartDate) != "" {
		d, err := parseDate("startDate", req.StartDate)
		if err != nil {
			return core.Payment{}, err
		}
		p.StartDate = &d
	}
	return p, nil
}

func (req paymentPatchRequest) toPatch() (core.PaymentPatch, error) {
	patch := core.PaymentPatch{
		UserID:      sanitizePtr(req.UserID),
		Concept:     sanitizePtr(req.Concept),
		Amount:      req.Amount,
		Method:      sanitizePtr(req.Method),
		IsScheduled: req.IsScheduled,
	}
	if req.Status != nil {
		status := core.PaymentStatus(strings.TrimSpace(*req.Status))
		patch.Status = &status
	}
	if req.Frequency != nil {
		freq := core.Frequency(strings.ToLower(strings.TrimSpace(*req.Frequency)))
		patch.Frequency = &freq
	}
	if req.DueDate != nil {
		d, err := parseDate("dueDate", *req.DueDate)
		if err != nil {
			return core.PaymentPatch{}, err
		}
		patch.DueDate = &d
	}
	if req.StartDate != nil {
		d, err := parseDate("startDate", *req.StartDate)
		if err != nil {
			return core.PaymentPatch{}, err
		}
		patch.StartDate = &d
	}
	return patch, nil
}

// ParseEntryFilter reads user_id, category and include_deleted.
func ParseEntryFilter(query url.Values) (core.EntryFilter, error) {
	includeDeleted, err := parseBool(query, "include_deleted")
	if err != nil {
		return core.EntryFilter{}, err
	}
	return core.EntryFilter{
		UserID:         sanitizeInput(query.Get("user_id")),
		Category:       sanitizeInput(query.Get("category")),
		IncludeDeleted: includeDeleted,
	}, nil
}

// ParsePaymentFilter reads user_id, status, scheduled, due_before and include_deleted.
func ParsePaymentFilter(query url.Values) (core.PaymentFilter, error) {
	filter := core.PaymentFilter{
		UserID: sanitizeInput(query.Get("user_id")),
		Status: core.PaymentStatus(strings.TrimSpace(query.Get("status"))),
	}

	var err error
	if filter.ScheduledOnly, err = parseBool(query, "scheduled"); err != nil {
		return core.PaymentFilter{}, err
	}
	if filter.IncludeDeleted, err = parseBool(query, "include_deleted"); err != nil {
		return core.PaymentFilter{}, err
	}
	if v := strings.TrimSpace(query.Get("due_before")); v != "" {
		if filter.DueBefore, err = parseDate("due_before", v); err != nil {
			return core.PaymentFilter{}, err
		}
	}
	return filter, nil
}

func parseBool(query url.Values, key string) (bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, core.ValidationError{Field: key, Message: "must be true or false"}
	}
	return b, nil
}
