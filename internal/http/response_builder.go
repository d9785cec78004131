// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.data)
}

type errorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps a service error to an HTTP status code. A summary conflict
// that outlived the retries is a 409 even when wrapped by the refresh.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrRecalculation):
		return http.StatusInternalServerError
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidID), errors.Is(err, errMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the JSON error body for err. Internal errors are
// logged and replaced by a generic message.
func ErrorResponse(r *http.Request, err error) *JSONResponseBuilder {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.LogError(r.Context(), "Request failed", err, r.Method+" "+r.URL.Path, nil)
		msg = "internal server error"
	}
	return NewJSONResponse().Status(status).Data(errorResponse{Error: msg})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(r, err).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Data(v).Write(w)
}

type entryResponse struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	UserID    string     `json:"userId,omitempty"`
	Title     string     `json:"title"`
	Concept   string     `json:"concept,omitempty"`
	Amount    core.Money `json:"amount"`
	Source    string     `json:"source,omitempty"`
	Category  string     `json:"category"`
	Date      time.Time  `json:"date"`
	Notes     string     `json:"notes,omitempty"`
	PaymentID string     `json:"paymentId,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	Profits   core.Money `json:"profits"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func newEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		Kind:      string(e.Kind),
		UserID:    e.UserID,
		Title:     e.Title,
		Concept:   e.Concept,
		Amount:    e.Amount,
		Source:    e.Source,
		Category:  e.Category,
		Date:      e.Date,
		Notes:     e.Notes,
		PaymentID: e.PaymentID,
		DeletedAt: e.DeletedAt,
		Profits:   e.Profits,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

type paymentResponse struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId,omitempty"`
	Concept     string         `json:"concept"`
	Amount      core.Money     `json:"amount"`
	Method      string         `json:"method,omitempty"`
	Status      string         `json:"status"`
	IsScheduled bool           `json:"isScheduled"`
	Frequency   string         `json:"frequency,omitempty"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	StartDate   *time.Time     `json:"startDate,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	DeletedAt   *time.Time     `json:"deletedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Expense     *entryResponse `json:"expense,omitempty"`
}

func newPaymentResponse(p core.Payment) paymentResponse {
	resp := paymentResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		Concept:     p.Concept,
		Amount:      p.Amount,
		Method:      p.Method,
		Status:      string(p.Status),
		IsScheduled: p.IsScheduled,
		Frequency:   string(p.Frequency),
		StartDate:   p.StartDate,
		CompletedAt: p.CompletedAt,
		DeletedAt:   p.DeletedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if !p.DueDate.IsZero() {
		due := p.DueDate
		resp.DueDate = &due
	}
	return resp
}

func newCascadeResponse(res services.CascadeResult) paymentResponse {
	resp := newPaymentResponse(res.Payment)
	if res.Expense != nil {
		e := newEntryResponse(*res.Expense)
		resp.Expense = &e
	}
	return resp
}

type summaryResponse struct {
	TotalIncome  core.Money `json:"totalIncome"`
	TotalExpense core.Money `json:"totalExpense"`
	Profit       core.Money `json:"profit"`
	Version      int64      `json:"version"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func newSummaryResponse(s core.Summary) summaryResponse {
	return summaryResponse{
		TotalIncome:  s.TotalIncome,
		TotalExpense: s.TotalExpense,
		Profit:       s.Profit,
		Version:      s.Version,
		UpdatedAt:    s.UpdatedAt,
	}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newListResponse[S any, T any](src []S, convert func(S) T) listResponse[T] {
	items := make([]T, 0, len(src))
	for _, v := range src {
		items = append(items, convert(v))
	}
	return listResponse[T]{Items: items, Count: len(items)}
}
