package backend

import (
	"context"

	"finanzas/internal/amqp"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend bundles the store and the services built on top of it.
type Backend struct {
	Store    storage.Store
	Profits  *services.ProfitRecalculator
	Ledger   *services.LedgerService
	Payments *services.PaymentService
	// AMQP is nil when no broker is configured or it was unreachable.
	AMQP *amqp.Client
}

// BackendResult contains the backend instance and its cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MongoDB specific
	MongoURI      string
	MongoDatabase string

	// AMQP is optional for every backend
	AMQPURL         string
	AMQPExchange    string
	AMQPEventsQueue string
	AMQPRecalcQueue string

	ProfitMode services.ProfitMode
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}
