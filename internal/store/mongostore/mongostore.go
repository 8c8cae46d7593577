// internal/store/mongostore/mongostore.go
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"librastore/internal/store"
)

const (
	collectionCounters = "counters"
	counterInvoices    = "invoiceNumber"
)

// Store keeps each entity kind in its own collection. Counters live in a
// separate collection, one document per sequence.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	books    *mongo.Collection
	users    *mongo.Collection
	invoices *mongo.Collection
	counters *mongo.Collection
	tracer   trace.Tracer
	logger   *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, pings the server and makes sure the unique indexes
// exist.
func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*Store, error) {
	opts := options.Client().ApplyURI(uri).SetRegistry(newRegistry())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		db:       db,
		books:    db.Collection(store.CollectionBooks),
		users:    db.Collection(store.CollectionUsers),
		invoices: db.Collection(store.CollectionInvoices),
		counters: db.Collection(collectionCounters),
		tracer:   otel.Tracer("librastore/mongostore"),
		logger:   logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("connected to mongo", zap.String("database", database))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(c *mongo.Collection, field string) error {
		_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create index %s.%s: %w", c.Name(), field, err)
		}
		return nil
	}
	if err := unique(s.books, "isbn"); err != nil {
		return err
	}
	if err := unique(s.users, "email"); err != nil {
		return err
	}
	if err := unique(s.invoices, "numero"); err != nil {
		return err
	}
	_, err := s.invoices.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "cliente._id", Value: 1}}})
	if err != nil {
		return fmt.Errorf("create index invoices.cliente: %w", err)
	}
	return nil
}

func (s *Store) Books() store.BookRepository       { return bookRepo{s} }
func (s *Store) Users() store.UserRepository       { return userRepo{s} }
func (s *Store) Invoices() store.InvoiceRepository { return invoiceRepo{s} }

// NextID keeps one sequence per collection.
func (s *Store) NextID(ctx context.Context, collection string) (int64, error) {
	return s.next(ctx, collection)
}

func (s *Store) NextInvoiceNumber(ctx context.Context) (int64, error) {
	return s.next(ctx, counterInvoices)
}

func (s *Store) next(ctx context.Context, name string) (int64, error) {
	ctx, span := s.start(ctx, "mongostore.next", attribute.String("counter", name))
	defer span.End()

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	advance := func() error {
		return s.counters.FindOneAndUpdate(ctx,
			bson.M{"_id": name},
			bson.M{"$inc": bson.M{"seq": int64(1)}},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&doc)
	}
	err := advance()
	// Two first-time upserts can race on the counter's _id; the loser retries
	// against the now existing document.
	if err != nil && isTransient(err) {
		err = advance()
	}
	if err != nil {
		return 0, s.fail(span, fmt.Errorf("advance counter %s: %w", name, err))
	}
	return doc.Seq, nil
}

// Reset removes every document, counters included.
func (s *Store) Reset(ctx context.Context) error {
	ctx, span := s.start(ctx, "mongostore.reset")
	defer span.End()

	for _, c := range []*mongo.Collection{s.books, s.users, s.invoices, s.counters} {
		if _, err := c.DeleteMany(ctx, bson.M{}); err != nil {
			return s.fail(span, fmt.Errorf("clear %s: %w", c.Name(), err))
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", "mongodb"))
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// fail records err on span unless it is an expected domain outcome.
func (s *Store) fail(span trace.Span, err error) error {
	if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrVersionConflict) &&
		!errors.Is(err, store.ErrInsufficientStock) && !errors.Is(err, store.ErrDuplicate) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}
