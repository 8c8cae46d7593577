// internal/cart/implementation.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"librastore/internal/apperr"
	"librastore/internal/models"
	"librastore/internal/store"
)

// maxAttempts bounds the reload-and-retry loop on version conflicts.
const maxAttempts = 3

type service struct {
	store  store.Store
	logger *zap.Logger
}

func NewService(st store.Store, logger *zap.Logger) Service {
	return &service{store: st, logger: logger.Named("cart")}
}

func (s *service) loadClient(ctx context.Context, clientID int64) (*models.User, error) {
	u, err := s.store.Users().Get(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !u.IsClient()) {
		return nil, apperr.NotFoundf("client %d not found", clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("load client %d: %w", clientID, err)
	}
	if u.Cart == nil {
		u.Cart = models.NewCart()
	}
	return u, nil
}

func (s *service) loadBook(ctx context.Context, bookID int64) (*models.Book, error) {
	b, err := s.store.Books().Get(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("book %d not found", bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("load book %d: %w", bookID, err)
	}
	return b, nil
}

// update applies edit to a fresh copy of the cart and saves it, reloading and
// retrying when another writer saved in between.
func (s *service) update(ctx context.Context, clientID int64, edit func(c *models.Cart) error) (*models.Cart, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		u, err := s.loadClient(ctx, clientID)
		if err != nil {
			return nil, err
		}
		c := u.Cart.Clone()
		if err := edit(c); err != nil {
			return nil, err
		}

		saved, err := s.store.Users().SaveCart(ctx, clientID, c, u.Cart.Version)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("save cart of client %d: %w", clientID, err)
		}
		s.logger.Debug("cart version conflict, retrying",
			zap.Int64("client_id", clientID), zap.Int("attempt", attempt))
	}
	return nil, apperr.Conflictf("cart of client %d changed concurrently", clientID)
}

// Get returns the cart with each item's book resolved. Items whose book has
// since been deleted keep a nil book.
func (s *service) Get(ctx context.Context, clientID int64) (*models.Cart, error) {
	u, err := s.loadClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	c := u.Cart
	for i := range c.Items {
		b, err := s.store.Books().Get(ctx, c.Items[i].BookID)
		switch {
		case err == nil:
			c.Items[i].Book = b
		case errors.Is(err, store.ErrNotFound):
		default:
			return nil, fmt.Errorf("resolve book %d: %w", c.Items[i].BookID, err)
		}
	}
	return c, nil
}

func (s *service) AddItem(ctx context.Context, clientID, bookID int64, qty int) (*models.CartItem, error) {
	if qty < 0 {
		return nil, apperr.Validation("cantidad must not be negative")
	}
	b, err := s.loadBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	var item models.CartItem
	_, err = s.update(ctx, clientID, func(c *models.Cart) error {
		item = c.Add(bookID, b.Price, qty)
		return nil
	})
	if err != nil {
		return nil, err
	}
	item.Book = b
	return &item, nil
}

func (s *service) SetItemQuantity(ctx context.Context, clientID int64, index, qty int) (*models.Cart, error) {
	if qty < 0 {
		return nil, apperr.Validation("cantidad must not be negative")
	}

	// Resolve the position once, against the cart as the caller saw it; the
	// retries then follow the item by key even if other lines move.
	u, err := s.loadClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	key, ok := u.Cart.KeyAt(index)
	if !ok {
		return nil, apperr.Validationf("cart has no item at index %d", index)
	}
	it := u.Cart.Items[index]
	price := it.Price
	if b, err := s.store.Books().Get(ctx, it.BookID); err == nil {
		price = b.Price
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load book %d: %w", it.BookID, err)
	}

	return s.update(ctx, clientID, func(c *models.Cart) error {
		if !c.SetQuantity(key, qty, price) {
			return apperr.Conflictf("cart item at index %d was removed concurrently", index)
		}
		return nil
	})
}

func (s *service) Clear(ctx context.Context, clientID int64) error {
	_, err := s.update(ctx, clientID, func(c *models.Cart) error {
		c.Clear()
		return nil
	})
	return err
}
