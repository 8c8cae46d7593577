// internal/checkout/service.go
package checkout

import (
	"context"
	"io"

	"librastore/internal/models"
)

// Service turns carts into invoices and manages the invoice collection.
type Service interface {
	// Purchase converts the client's cart into an invoice, decrementing
	// stock. Either all of it happens or none of it does.
	Purchase(ctx context.Context, billing Billing) (*models.Invoice, error)
	Get(ctx context.Context, id int64) (*models.Invoice, error)
	GetByNumber(ctx context.Context, number int64) (*models.Invoice, error)
	ListByClient(ctx context.Context, clientID int64) ([]*models.Invoice, error)
	List(ctx context.Context) ([]*models.Invoice, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	// ReplaceAll loads invoices administratively, assigning fresh ids and
	// numbers and recomputing totals.
	ReplaceAll(ctx context.Context, invoices []*models.Invoice) ([]*models.Invoice, error)
	RenderPDF(w io.Writer, inv *models.Invoice) error
}
