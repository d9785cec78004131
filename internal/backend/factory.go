package backend

import (
	"context"
	"errors"
	"fmt"

	"finanzas/internal/amqp"
	"finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/storage"
	"finanzas/internal/storage/memory"
	"finanzas/internal/storage/mongo"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional: without it hard deletes recalculate inline and no events are published.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPEventsQueue, config.AMQPRecalcQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			amqpClient = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"events_queue", config.AMQPEventsQueue,
				"recalc_queue", config.AMQPRecalcQueue)
		}
	}

	b := Assemble(store, config.ProfitMode, amqpClient)

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type.String(),
		"profit_mode", string(config.ProfitMode),
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Backend: b,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				errs = append(errs, amqpClient.Close())
			}
			errs = append(errs, store.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MongoBackend:
		store, err := mongo.Open(ctx, config.MongoURI, config.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened MongoDB store", "database", config.MongoDatabase)
		return store, nil
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Opened in-memory store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// Assemble wires the services over store. client may be nil.
func Assemble(store storage.Store, mode services.ProfitMode, client *amqp.Client) *Backend {
	// A nil *amqp.Client must not become a non-nil Publisher.
	var publisher services.Publisher
	if client != nil {
		publisher = client
	}

	profits := services.NewProfitRecalculator(store, mode)
	return &Backend{
		Store:    store,
		Profits:  profits,
		Ledger:   services.NewLedgerService(store, profits, publisher),
		Payments: services.NewPaymentService(store, profits, publisher),
		AMQP:     client,
	}
}

// Publisher returns the AMQP client as a services.Publisher, or nil.
func (b *Backend) Publisher() services.Publisher {
	if b.AMQP == nil {
		return nil
	}
	return b.AMQP
}
