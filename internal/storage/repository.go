package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"finanzas/internal/core"

	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteRepository)(nil)

// SQLiteRepository is the durable single-file backend. Write transactions
// start with BEGIN IMMEDIATE so the database lock serializes writers.
type SQLiteRepository struct {
	db *sql.DB
	*sqlQueries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := sqliteDSN(dbPath)

	// Migrate before the pool is opened so every connection sees the schema
	version, err := MigrateLedger(dsn)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite ledger opened", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		sqlQueries: newSQLQueries(db),
	}, nil
}

func sqliteDSN(path string) string {
	return "file:" + path +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, newSQLQueries(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) NewID() string { return uuid.NewString() }

func (r *SQLiteRepository) ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidID, id)
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
