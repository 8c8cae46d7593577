// internal/cart/service.go
package cart

import (
	"context"

	"librastore/internal/models"
)

// Service edits a client's cart. Every save is checked against the cart
// version read before the edit.
type Service interface {
	Get(ctx context.Context, clientID int64) (*models.Cart, error)
	AddItem(ctx context.Context, clientID, bookID int64, qty int) (*models.CartItem, error)
	// SetItemQuantity addresses the item by its position in the cart.
	SetItemQuantity(ctx context.Context, clientID int64, index, qty int) (*models.Cart, error)
	Clear(ctx context.Context, clientID int64) error
}
