// internal/store/mongostore/repositories.go
package mongostore

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"

	"librastore/internal/models"
	"librastore/internal/store"
)

var byID = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

func findOne[T any](ctx context.Context, s *Store, c *mongo.Collection, op string, filter bson.M) (*T, error) {
	ctx, span := s.start(ctx, op)
	defer span.End()

	var out T
	if err := c.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, s.fail(span, translate(err))
	}
	return &out, nil
}

func findMany[T any](ctx context.Context, s *Store, c *mongo.Collection, op string, filter bson.M) ([]*T, error) {
	ctx, span := s.start(ctx, op)
	defer span.End()

	cur, err := c.Find(ctx, filter, byID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	out := []*T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.Int("db.rows", len(out)))
	return out, nil
}

func insertOne(ctx context.Context, s *Store, c *mongo.Collection, op string, doc any) error {
	ctx, span := s.start(ctx, op)
	defer span.End()

	if _, err := c.InsertOne(ctx, doc); err != nil {
		return s.fail(span, translate(err))
	}
	return nil
}

func deleteOne(ctx context.Context, s *Store, c *mongo.Collection, op string, id int64) error {
	ctx, span := s.start(ctx, op)
	defer span.End()

	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return s.fail(span, err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func deleteMany(ctx context.Context, s *Store, c *mongo.Collection, op string, filter bson.M) error {
	ctx, span := s.start(ctx, op)
	defer span.End()

	res, err := c.DeleteMany(ctx, filter)
	if err != nil {
		return s.fail(span, err)
	}
	span.SetAttributes(attribute.Int64("db.deleted", res.DeletedCount))
	return nil
}

type bookRepo struct{ s *Store }

func (r bookRepo) Get(ctx context.Context, id int64) (*models.Book, error) {
	return findOne[models.Book](ctx, r.s, r.s.books, "mongostore.books.get", bson.M{"_id": id})
}

func (r bookRepo) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	return findOne[models.Book](ctx, r.s, r.s.books, "mongostore.books.find_isbn", bson.M{"isbn": isbn})
}

func (r bookRepo) SearchTitle(ctx context.Context, q string) ([]*models.Book, error) {
	filter := bson.M{"titulo": primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}}
	return findMany[models.Book](ctx, r.s, r.s.books, "mongostore.books.search", filter)
}

func (r bookRepo) List(ctx context.Context) ([]*models.Book, error) {
	return findMany[models.Book](ctx, r.s, r.s.books, "mongostore.books.list", bson.M{})
}

func (r bookRepo) Insert(ctx context.Context, b *models.Book) error {
	return insertOne(ctx, r.s, r.s.books, "mongostore.books.insert", b)
}

func (r bookRepo) Update(ctx context.Context, b *models.Book) error {
	ctx, span := r.s.start(ctx, "mongostore.books.update", attribute.Int64("book.id", b.ID))
	defer span.End()

	res, err := r.s.books.ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	if err != nil {
		return r.s.fail(span, translate(err))
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r bookRepo) Delete(ctx context.Context, id int64) error {
	return deleteOne(ctx, r.s, r.s.books, "mongostore.books.delete", id)
}

func (r bookRepo) DeleteAll(ctx context.Context) error {
	return deleteMany(ctx, r.s, r.s.books, "mongostore.books.delete_all", bson.M{})
}

// DecrementStock guards the update with stock >= qty so concurrent buyers
// can never drive it negative.
func (r bookRepo) DecrementStock(ctx context.Context, id int64, qty int) error {
	ctx, span := r.s.start(ctx, "mongostore.books.decrement_stock",
		attribute.Int64("book.id", id), attribute.Int("quantity", qty))
	defer span.End()

	res, err := r.s.books.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}},
	)
	if err != nil {
		return r.s.fail(span, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := r.s.books.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return r.s.fail(span, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrInsufficientStock
}

func (r bookRepo) IncrementStock(ctx context.Context, id int64, qty int) error {
	ctx, span := r.s.start(ctx, "mongostore.books.increment_stock",
		attribute.Int64("book.id", id), attribute.Int("quantity", qty))
	defer span.End()

	res, err := r.s.books.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"stock": qty}})
	if err != nil {
		return r.s.fail(span, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

type userRepo struct{ s *Store }

func roleFilter(role models.Role) bson.M {
	if role == models.AnyRole {
		return bson.M{}
	}
	return bson.M{"rol": role}
}

func (r userRepo) Get(ctx context.Context, id int64) (*models.User, error) {
	return findOne[models.User](ctx, r.s, r.s.users, "mongostore.users.get", bson.M{"_id": id})
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.s, r.s.users, "mongostore.users.find_email", bson.M{"email": email})
}

func (r userRepo) FindByNationalID(ctx context.Context, nationalID string) (*models.User, error) {
	return findOne[models.User](ctx, r.s, r.s.users, "mongostore.users.find_dni", bson.M{"dni": nationalID})
}

func (r userRepo) List(ctx context.Context, role models.Role) ([]*models.User, error) {
	return findMany[models.User](ctx, r.s, r.s.users, "mongostore.users.list", roleFilter(role))
}

func (r userRepo) Insert(ctx context.Context, u *models.User) error {
	return insertOne(ctx, r.s, r.s.users, "mongostore.users.insert", u)
}

func (r userRepo) Update(ctx context.Context, u *models.User) error {
	ctx, span := r.s.start(ctx, "mongostore.users.update", attribute.Int64("user.id", u.ID))
	defer span.End()

	res, err := r.s.users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"dni":       u.NationalID,
		"nombre":    u.Name,
		"apellidos": u.Surnames,
		"direccion": u.Address,
		"email":     u.Email,
		"password":  u.Password,
	}})
	if err != nil {
		return r.s.fail(span, translate(err))
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r userRepo) Delete(ctx context.Context, id int64) error {
	return deleteOne(ctx, r.s, r.s.users, "mongostore.users.delete", id)
}

func (r userRepo) DeleteByRole(ctx context.Context, role models.Role) error {
	return deleteMany(ctx, r.s, r.s.users, "mongostore.users.delete_by_role", roleFilter(role))
}

func (r userRepo) SaveCart(ctx context.Context, clientID int64, cart *models.Cart, expectedVersion int64) (*models.Cart, error) {
	ctx, span := r.s.start(ctx, "mongostore.users.save_cart",
		attribute.Int64("user.id", clientID), attribute.Int64("cart.version", expectedVersion))
	defer span.End()

	next := cart.Clone()
	next.Version = expectedVersion + 1

	res, err := r.s.users.UpdateOne(ctx,
		bson.M{"_id": clientID, "rol": models.RoleClient, "carro.version": expectedVersion},
		bson.M{"$set": bson.M{"carro": next}},
	)
	if err != nil {
		return nil, r.s.fail(span, err)
	}
	if res.MatchedCount == 1 {
		return next, nil
	}

	n, err := r.s.users.CountDocuments(ctx, bson.M{"_id": clientID, "rol": models.RoleClient})
	if err != nil {
		return nil, r.s.fail(span, err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrVersionConflict
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	return findOne[models.Invoice](ctx, r.s, r.s.invoices, "mongostore.invoices.get", bson.M{"_id": id})
}

func (r invoiceRepo) FindByNumber(ctx context.Context, number int64) (*models.Invoice, error) {
	return findOne[models.Invoice](ctx, r.s, r.s.invoices, "mongostore.invoices.find_number", bson.M{"numero": number})
}

func (r invoiceRepo) ListByClient(ctx context.Context, clientID int64) ([]*models.Invoice, error) {
	return findMany[models.Invoice](ctx, r.s, r.s.invoices, "mongostore.invoices.list_client", bson.M{"cliente._id": clientID})
}

func (r invoiceRepo) List(ctx context.Context) ([]*models.Invoice, error) {
	return findMany[models.Invoice](ctx, r.s, r.s.invoices, "mongostore.invoices.list", bson.M{})
}

func (r invoiceRepo) Insert(ctx context.Context, inv *models.Invoice) error {
	return insertOne(ctx, r.s, r.s.invoices, "mongostore.invoices.insert", inv)
}

func (r invoiceRepo) Delete(ctx context.Context, id int64) error {
	return deleteOne(ctx, r.s, r.s.invoices, "mongostore.invoices.delete", id)
}

func (r invoiceRepo) DeleteAll(ctx context.Context) error {
	return deleteMany(ctx, r.s, r.s.invoices, "mongostore.invoices.delete_all", bson.M{})
}

// isTransient reports driver errors worth one more attempt.
func isTransient(err error) bool {
	var cmdErr mongo.CommandError
	return mongo.IsDuplicateKeyError(err) || (errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError"))
}
