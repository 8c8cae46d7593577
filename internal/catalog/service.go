// internal/catalog/service.go
package catalog

import (
	"context"

	"librastore/internal/models"
)

// Service defines the interface for the catalog manager.
type Service interface {
	Create(ctx context.Context, in BookInput) (*models.Book, error)
	Get(ctx context.Context, id int64) (*models.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	SearchTitle(ctx context.Context, q string) ([]*models.Book, error)
	List(ctx context.Context) ([]*models.Book, error)
	Update(ctx context.Context, id int64, in BookInput) (*models.Book, error)
	ReplaceAll(ctx context.Context, inputs []BookInput) ([]*models.Book, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}
