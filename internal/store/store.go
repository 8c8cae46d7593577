// internal/store/store.go
package store

import (
	"context"
	"errors"

	"librastore/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrVersionConflict   = errors.New("version conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Collection names, used to scope id counters where the backend does so.
const (
	CollectionBooks    = "books"
	CollectionUsers    = "users"
	CollectionInvoices = "invoices"
)

// BookRepository persists catalog entries. Insert and Update fail with
// ErrDuplicate when another book holds the same ISBN.
type BookRepository interface {
	Get(ctx context.Context, id int64) (*models.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*models.Book, error)
	// SearchTitle returns every book whose title contains q, ignoring case.
	SearchTitle(ctx context.Context, q string) ([]*models.Book, error)
	List(ctx context.Context) ([]*models.Book, error)
	Insert(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, b *models.Book) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	// DecrementStock subtracts qty only while stock stays non-negative,
	// otherwise it fails with ErrInsufficientStock and changes nothing.
	DecrementStock(ctx context.Context, id int64, qty int) error
	IncrementStock(ctx context.Context, id int64, qty int) error
}

// UserRepository persists clients and admins in one collection, told apart by
// role. Update never touches role or cart; carts change only through SaveCart.
type UserRepository interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByNationalID(ctx context.Context, nationalID string) (*models.User, error)
	List(ctx context.Context, role models.Role) ([]*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id int64) error
	DeleteByRole(ctx context.Context, role models.Role) error
	// SaveCart replaces a client's cart if its stored version equals
	// expectedVersion and returns the stored cart at expectedVersion+1.
	SaveCart(ctx context.Context, clientID int64, cart *models.Cart, expectedVersion int64) (*models.Cart, error)
}

type InvoiceRepository interface {
	Get(ctx context.Context, id int64) (*models.Invoice, error)
	FindByNumber(ctx context.Context, number int64) (*models.Invoice, error)
	ListByClient(ctx context.Context, clientID int64) ([]*models.Invoice, error)
	List(ctx context.Context) ([]*models.Invoice, error)
	Insert(ctx context.Context, inv *models.Invoice) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}

// Store is the persistence substrate shared by every manager. The id and
// invoice-number counters live here and are only reset by Reset.
type Store interface {
	Books() BookRepository
	Users() UserRepository
	Invoices() InvoiceRepository
	NextID(ctx context.Context, collection string) (int64, error)
	NextInvoiceNumber(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
	Close(ctx context.Context) error
}
