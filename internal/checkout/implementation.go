// internal/checkout/implementation.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"librastore/internal/apperr"
	"librastore/internal/journal"
	"librastore/internal/models"
	"librastore/internal/store"
)

// maxRestoreAttempts bounds the merge-and-retry loop that hands a rolled-back
// purchase's lines back to a cart edited in the meantime.
const maxRestoreAttempts = 5

type service struct {
	store   store.Store
	journal journal.Journal
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *metrics
	now     func() time.Time
}

func NewService(st store.Store, j journal.Journal, logger *zap.Logger) Service {
	return &service{
		store:   st,
		journal: j,
		logger:  logger.Named("checkout"),
		tracer:  otel.Tracer("librastore/checkout"),
		metrics: newMetrics(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Purchase runs the checkout saga:
//
//  1. verify every line has enough stock, before touching anything
//  2. claim the cart by clearing it at the version that was read
//  3. decrement stock line by line, guarded by the store
//  4. allocate the invoice number and record the invoice
//
// A failure after step 2 undoes the earlier steps.
func (s *service) Purchase(ctx context.Context, billing Billing) (*models.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.purchase",
		trace.WithAttributes(attribute.Int64("client.id", billing.ClientID)))
	defer span.End()

	inv, err := s.purchase(ctx, billing)
	if err != nil {
		span.RecordError(err)
		s.metrics.checkoutFailed(ctx, apperr.KindOf(err).String())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("invoice.number", inv.Number))
	s.metrics.invoiceIssued(ctx)
	return inv, nil
}

func (s *service) purchase(ctx context.Context, billing Billing) (*models.Invoice, error) {
	if billing.ClientID == 0 {
		return nil, apperr.Validation("cliente is required")
	}
	client, err := s.store.Users().Get(ctx, billing.ClientID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !client.IsClient()) {
		return nil, apperr.NotFoundf("client %d not found", billing.ClientID)
	}
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	cart := client.Cart
	if cart == nil || cart.Empty() {
		return nil, apperr.Validation("cart is empty, nothing to purchase")
	}

	// Step 1: check the whole cart up front.
	books := make(map[int64]*models.Book, len(cart.Items))
	for _, it := range cart.Items {
		b, err := s.store.Books().Get(ctx, it.BookID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Conflictf("book %d is no longer available", it.BookID)
		}
		if err != nil {
			return nil, fmt.Errorf("load book %d: %w", it.BookID, err)
		}
		if b.Stock < it.Quantity {
			return nil, apperr.Conflictf("insufficient stock for %q: only %d left", b.Title, b.Stock)
		}
		books[b.ID] = b
	}

	// Step 2: claim the cart. A concurrent purchase or edit makes this fail
	// with nothing changed.
	claimed, err := s.store.Users().SaveCart(ctx, client.ID, models.NewCart(), cart.Version)
	if errors.Is(err, store.ErrVersionConflict) {
		return nil, apperr.Conflict("cart changed while purchasing, try again")
	}
	if err != nil {
		return nil, fmt.Errorf("claim cart: %w", err)
	}

	var decremented []models.CartItem
	compensation := func(reason string) {
		s.logger.Warn("rolling back purchase",
			zap.Int64("client_id", client.ID), zap.String("reason", reason))
		// Compensation must run even if the request context is gone.
		cctx := context.WithoutCancel(ctx)
		for _, it := range decremented {
			if err := s.store.Books().IncrementStock(cctx, it.BookID, it.Quantity); err != nil {
				s.logger.Error("failed to restore stock",
					zap.Int64("book_id", it.BookID), zap.Int("quantity", it.Quantity), zap.Error(err))
			}
		}
		if err := s.restoreCart(cctx, client.ID, cart, claimed.Version); err != nil {
			s.logger.Error("failed to restore cart", zap.Int64("client_id", client.ID), zap.Error(err))
		}
	}

	// Step 3: decrement stock.
	for _, it := range cart.Items {
		err := s.store.Books().DecrementStock(ctx, it.BookID, it.Quantity)
		if err != nil {
			compensation("stock decrement failed")
			switch {
			case errors.Is(err, store.ErrInsufficientStock):
				return nil, apperr.Conflictf("insufficient stock for %q", books[it.BookID].Title)
			case errors.Is(err, store.ErrNotFound):
				return nil, apperr.Conflictf("book %d is no longer available", it.BookID)
			}
			return nil, fmt.Errorf("decrement stock of book %d: %w", it.BookID, err)
		}
		decremented = append(decremented, it)
		books[it.BookID].Stock -= it.Quantity
	}

	// Step 4: number and record the invoice.
	number, err := s.store.NextInvoiceNumber(ctx)
	if err != nil {
		compensation("invoice number allocation failed")
		return nil, fmt.Errorf("allocate invoice number: %w", err)
	}
	id, err := s.store.NextID(ctx, store.CollectionInvoices)
	if err != nil {
		compensation("invoice id allocation failed")
		return nil, fmt.Errorf("allocate invoice id: %w", err)
	}

	billing = billing.applyDefaults(client)
	inv := &models.Invoice{
		ID:         id,
		Number:     number,
		Date:       s.now(),
		LegalName:  billing.LegalName,
		Address:    billing.Address,
		Email:      billing.Email,
		NationalID: billing.NationalID,
		Client:     client.Snapshot(),
		Items:      models.NewInvoiceLines(cart, books),
	}
	inv.Recalculate()

	if err := s.store.Invoices().Insert(ctx, inv); err != nil {
		compensation("invoice insert failed")
		return nil, fmt.Errorf("record invoice %d: %w", number, err)
	}

	s.record(ctx, inv)
	s.logger.Info("invoice issued",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("numero", inv.Number),
		zap.Int64("client_id", client.ID),
		zap.String("total", inv.Total.StringFixed(2)),
	)
	return inv, nil
}

// restoreCart gives the client back the lines of a rolled-back purchase. If
// the cart was edited after the claim, the lines are merged into the current
// cart instead of overwriting it.
func (s *service) restoreCart(ctx context.Context, clientID int64, original *models.Cart, claimedVersion int64) error {
	_, err := s.store.Users().SaveCart(ctx, clientID, original, claimedVersion)
	for attempt := 1; errors.Is(err, store.ErrVersionConflict) && attempt <= maxRestoreAttempts; attempt++ {
		var u *models.User
		if u, err = s.store.Users().Get(ctx, clientID); err != nil {
			return fmt.Errorf("reload cart: %w", err)
		}
		current, version := models.NewCart(), int64(0)
		if u.Cart != nil {
			current, version = u.Cart.Clone(), u.Cart.Version
		}
		for _, it := range original.Items {
			current.Add(it.BookID, it.Price, it.Quantity)
		}
		s.logger.Debug("cart edited during purchase, merging lines back",
			zap.Int64("client_id", clientID), zap.Int("attempt", attempt))
		_, err = s.store.Users().SaveCart(ctx, clientID, current, version)
	}
	return err
}

func (s *service) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	inv, err := s.store.Invoices().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("invoice %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load invoice %d: %w", id, err)
	}
	return inv, nil
}

func (s *service) GetByNumber(ctx context.Context, number int64) (*models.Invoice, error) {
	inv, err := s.store.Invoices().FindByNumber(ctx, number)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("invoice number %d not found", number)
	}
	if err != nil {
		return nil, fmt.Errorf("find invoice number %d: %w", number, err)
	}
	return inv, nil
}

func (s *service) ListByClient(ctx context.Context, clientID int64) ([]*models.Invoice, error) {
	invoices, err := s.store.Invoices().ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list invoices of client %d: %w", clientID, err)
	}
	return invoices, nil
}

func (s *service) List(ctx context.Context) ([]*models.Invoice, error) {
	invoices, err := s.store.Invoices().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	err := s.store.Invoices().Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFoundf("invoice %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}
	return nil
}

func (s *service) DeleteAll(ctx context.Context) error {
	if err := s.store.Invoices().DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete invoices: %w", err)
	}
	return nil
}

func (s *service) ReplaceAll(ctx context.Context, invoices []*models.Invoice) ([]*models.Invoice, error) {
	if err := s.DeleteAll(ctx); err != nil {
		return nil, err
	}
	loaded := make([]*models.Invoice, 0, len(invoices))
	for i, src := range invoices {
		inv := src.Clone()
		var err error
		if inv.ID, err = s.store.NextID(ctx, store.CollectionInvoices); err != nil {
			return loaded, fmt.Errorf("invoice %d: allocate id: %w", i, err)
		}
		if inv.Number, err = s.store.NextInvoiceNumber(ctx); err != nil {
			return loaded, fmt.Errorf("invoice %d: allocate number: %w", i, err)
		}
		if inv.Date.IsZero() {
			inv.Date = s.now()
		}
		for j := range inv.Items {
			line := &inv.Items[j]
			line.Total = models.LineTotal(line.Quantity, line.Book.Price)
		}
		inv.Recalculate()
		if err := s.store.Invoices().Insert(ctx, inv); err != nil {
			return loaded, fmt.Errorf("invoice %d: %w", i, err)
		}
		loaded = append(loaded, inv)
	}
	return loaded, nil
}

func (s *service) record(ctx context.Context, inv *models.Invoice) {
	e, err := journal.New(journal.Invoice, inv.ID, journal.InvoiceIssued, InvoiceIssuedEvent{
		ID:       inv.ID,
		Number:   inv.Number,
		ClientID: inv.Client.ID,
		Lines:    len(inv.Items),
		Total:    inv.Total,
	})
	if err == nil {
		err = s.journal.Append(ctx, e)
	}
	if err != nil {
		s.logger.Warn("journal append failed",
			zap.String("event", journal.InvoiceIssued), zap.Int64("invoice_id", inv.ID), zap.Error(err))
	}
}
