package amqp

import (
	"encoding/json"
	"time"

	"finanzas/internal/core"
)

// Routing keys on the ledger exchange.
const (
	RoutingLedgerEvents = "ledger.events"
	RoutingRecalculate  = "ledger.recalculate"
)

// Ledger event types.
const (
	EventEntryCreated        = "entry.created"
	EventEntryUpdated        = "entry.updated"
	EventEntryDeleted        = "entry.deleted"
	EventEntryRestored       = "entry.restored"
	EventEntryPurged         = "entry.purged"
	EventPaymentCreated      = "payment.created"
	EventPaymentUpdated      = "payment.updated"
	EventPaymentCompleted    = "payment.completed"
	EventPaymentDeleted      = "payment.deleted"
	EventPaymentRestored     = "payment.restored"
	EventProfitsRecalculated = "profits.recalculated"
)

// LedgerEvent is published after a mutation commits. It carries the aggregate
// as of that commit so consumers do not need to read it back.
type LedgerEvent struct {
	Type      string     `json:"type"`
	EntityID  string     `json:"entity_id,omitempty"`
	Kind      string     `json:"kind,omitempty"`
	Profit    core.Money `json:"profit"`
	Version   int64      `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewLedgerEvent(eventType, entityID, kind string, summary core.Summary) *LedgerEvent {
	return &LedgerEvent{
		Type:      eventType,
		EntityID:  entityID,
		Kind:      kind,
		Profit:    summary.Profit,
		Version:   summary.Version,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RecalculateRequest asks the worker for a full profit rescan.
// The worker fetches everything it needs from storage.
type RecalculateRequest struct {
	Reason    string    `json:"reason"`
	EntityID  string    `json:"entity_id,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecalculateRequest(reason, kind, entityID string) *RecalculateRequest {
	return &RecalculateRequest{
		Reason:    reason,
		EntityID:  entityID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

func (m *RecalculateRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecalculateRequestFromJSON(data []byte) (*RecalculateRequest, error) {
	var msg RecalculateRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
