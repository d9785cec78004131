// Package mongo is the MongoDB storage backend. Units of work run as
// multi-document transactions, so the server must be a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// Collection name constants.
const (
	colIncomes  = "incomes"
	colExpenses = "expenses"
	colPayments = "payments"
	colSummary  = "ledger_summary"
)

// compile-time interface check
var _ storage.Store = (*Store)(nil)

type Store struct {
	client *mongo.Client
	*queries
}

// Open connects to uri, selects database and runs Migrate.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("finanzas/mongo: connect: %w", err)
	}

	s := New(client, database)
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New wraps an already connected client.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client:  client,
		queries: &queries{db: client.Database(database)},
	}
}

// Migrate creates indexes for all ledger collections and the summary document.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("finanzas/mongo: migrate %s indexes: %w", col, err)
		}
	}

	_, err := s.db.Collection(colSummary).UpdateOne(ctx,
		bson.M{"_id": summaryID},
		bson.M{"$setOnInsert": bson.M{
			"total_income_cents":  int64(0),
			"total_expense_cents": int64(0),
			"profit_cents":        int64(0),
			"version":             int64(0),
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("finanzas/mongo: migrate summary: %w", err)
	}
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, q storage.Queries) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("finanzas/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, s.queries)
	})
	return err
}

func (s *Store) NewID() string { return bson.NewObjectID().Hex() }

func (s *Store) ValidateID(id string) error {
	_, err := parseID(id)
	return err
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("finanzas/mongo: ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Drop removes the database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// queries implements storage.Queries. Inside WithTransaction the context
// carries the session, so the same value serves both paths.
type queries struct {
	db *mongo.Database
}

func (q *queries) entries(kind core.EntryKind) (*mongo.Collection, error) {
	switch kind {
	case core.KindIncome:
		return q.db.Collection(colIncomes), nil
	case core.KindExpense:
		return q.db.Collection(colExpenses), nil
	}
	return nil, core.ErrInvalidKind
}

// ==================== Entries ====================

func (q *queries) InsertEntry(ctx context.Context, e core.Entry) error {
	col, err := q.entries(e.Kind)
	if err != nil {
		return err
	}
	m, err := toEntryModel(e)
	if err != nil {
		return err
	}
	if _, err := col.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("finanzas/mongo: insert %s: %w", e.Kind, err)
	}
	return nil
}

func (q *queries) UpdateEntry(ctx context.Context, e core.Entry) error {
	col, err := q.entries(e.Kind)
	if err != nil {
		return err
	}
	m, err := toEntryModel(e)
	if err != nil {
		return err
	}
	res, err := col.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("finanzas/mongo: update %s: %w", e.Kind, err)
	}
	if res.MatchedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (q *queries) DeleteEntry(ctx context.Context, kind core.EntryKind, id string) error {
	col, err := q.entries(kind)
	if err != nil {
		return err
	}
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("finanzas/mongo: delete %s: %w", kind, err)
	}
	if res.DeletedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (q *queries) GetEntry(ctx context.Context, kind core.EntryKind, id string) (core.Entry, error) {
	col, err := q.entries(kind)
	if err != nil {
		return core.Entry{}, err
	}
	oid, err := parseID(id)
	if err != nil {
		return core.Entry{}, err
	}
	return q.findEntry(ctx, col, kind, bson.M{"_id": oid})
}

func (q *queries) GetEntryByPayment(ctx context.Context, paymentID string) (core.Entry, error) {
	return q.findEntry(ctx, q.db.Collection(colExpenses), core.KindExpense, bson.M{"payment_id": paymentID})
}

func (q *queries) findEntry(ctx context.Context, col *mongo.Collection, kind core.EntryKind, filter bson.M) (core.Entry, error) {
	var m entryModel
	if err := col.FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return core.Entry{}, core.ErrNotFound
		}
		return core.Entry{}, fmt.Errorf("finanzas/mongo: get %s: %w", kind, err)
	}
	return fromEntryModel(&m, kind), nil
}

func (q *queries) ListEntries(ctx context.Context, kind core.EntryKind, filter core.EntryFilter) ([]core.Entry, error) {
	col, err := q.entries(kind)
	if err != nil {
		return nil, err
	}

	f := bson.M{}
	if !filter.IncludeDeleted {
		f["deleted_at"] = nil
	}
	if filter.UserID != "" {
		f["user_id"] = filter.UserID
	}
	if filter.Category != "" {
		f["category"] = filter.Category
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := col.Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("finanzas/mongo: list %s: %w", kind, err)
	}
	defer cursor.Close(ctx)

	var models []entryModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("finanzas/mongo: list %s decode: %w", kind, err)
	}

	out := make([]core.Entry, len(models))
	for i := range models {
		out[i] = fromEntryModel(&models[i], kind)
	}
	return out, nil
}

func (q *queries) SumActive(ctx context.Context, kind core.EntryKind) (core.Money, error) {
	col, err := q.entries(kind)
	if err != nil {
		return core.Money{}, err
	}

	pipeline := bson.A{
		bson.M{"$match": bson.M{"deleted_at": nil}},
		bson.M{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$amount_cents"}}},
	}
	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return core.Money{}, fmt.Errorf("finanzas/mongo: sum %s: %w", kind, err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return core.Money{}, fmt.Errorf("finanzas/mongo: sum %s decode: %w", kind, err)
	}
	if len(results) == 0 {
		return core.Money{}, nil
	}
	return core.Cents(results[0].Total), nil
}

// ==================== Payments ====================

func (q *queries) InsertPayment(ctx context.Context, p core.Payment) error {
	m, err := toPaymentModel(p)
	if err != nil {
		return err
	}
	if _, err := q.db.Collection(colPayments).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("finanzas/mongo: insert payment: %w", err)
	}
	return nil
}

func (q *queries) UpdatePayment(ctx context.Context, p core.Payment) error {
	m, err := toPaymentModel(p)
	if err != nil {
		return err
	}
	res, err := q.db.Collection(colPayments).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("finanzas/mongo: update payment: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (q *queries) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	oid, err := parseID(id)
	if err != nil {
		return core.Payment{}, err
	}
	var m paymentModel
	if err := q.db.Collection(colPayments).FindOne(ctx, bson.M{"_id": oid}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return core.Payment{}, core.ErrNotFound
		}
		return core.Payment{}, fmt.Errorf("finanzas/mongo: get payment: %w", err)
	}
	return fromPaymentModel(&m), nil
}

func (q *queries) ListPayments(ctx context.Context, filter core.PaymentFilter) ([]core.Payment, error) {
	f := bson.M{}
	if !filter.IncludeDeleted {
		f["deleted_at"] = nil
	}
	if filter.UserID != "" {
		f["user_id"] = filter.UserID
	}
	if filter.Status != "" {
		f["status"] = string(filter.Status)
	}
	if filter.ScheduledOnly {
		f["is_scheduled"] = true
	}
	if !filter.DueBefore.IsZero() {
		f["due_date"] = bson.M{"$lte": filter.DueBefore.UTC()}
	}

	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := q.db.Collection(colPayments).Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("finanzas/mongo: list payments: %w", err)
	}
	defer cursor.Close(ctx)

	var models []paymentModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("finanzas/mongo: list payments decode: %w", err)
	}

	out := make([]core.Payment, len(models))
	for i := range models {
		out[i] = fromPaymentModel(&models[i])
	}
	return out, nil
}

// ==================== Summary ====================

func (q *queries) GetSummary(ctx context.Context) (core.Summary, error) {
	var m summaryModel
	err := q.db.Collection(colSummary).FindOne(ctx, bson.M{"_id": summaryID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return core.Summary{}, nil
		}
		return core.Summary{}, fmt.Errorf("finanzas/mongo: get summary: %w", err)
	}
	return fromSummaryModel(&m), nil
}

func (q *queries) PutSummary(ctx context.Context, s core.Summary) error {
	res, err := q.db.Collection(colSummary).UpdateOne(ctx,
		bson.M{"_id": summaryID, "version": s.Version - 1},
		bson.M{"$set": bson.M{
			"total_income_cents":  s.TotalIncome.Cents,
			"total_expense_cents": s.TotalExpense.Cents,
			"profit_cents":        s.Profit.Cents,
			"version":             s.Version,
			"updated_at":          s.UpdatedAt.UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("finanzas/mongo: put summary: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: version %d", core.ErrConflict, s.Version)
	}
	return nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	entryIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "deleted_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}},
	}
	return map[string][]mongo.IndexModel{
		colIncomes: entryIndexes,
		colExpenses: append(entryIndexes, mongo.IndexModel{
			// One mirrored expense per payment.
			Keys: bson.D{{Key: "payment_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"payment_id": bson.M{"$exists": true}}),
		}),
		colPayments: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "is_scheduled", Value: 1}, {Key: "due_date", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}
}
