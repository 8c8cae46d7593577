// internal/store/faultstore/faultstore.go
package faultstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"librastore/internal/models"
	"librastore/internal/store"
)

// Operation names accepted by Inject.
const (
	OpDecrementStock    = "books.decrement_stock"
	OpIncrementStock    = "books.increment_stock"
	OpSaveCart          = "users.save_cart"
	OpInsertInvoice     = "invoices.insert"
	OpNextID            = "next_id"
	OpNextInvoiceNumber = "next_invoice_number"
)

// ErrInjected is the default error returned by a failing fault.
var ErrInjected = errors.New("injected fault")

// Fault describes what happens to calls of one operation.
type Fault struct {
	// After lets this many calls through before the fault applies.
	After int
	// Times limits how many calls fail; zero means every call after After.
	Times int
	// Err is returned by affected calls. Nil means ErrInjected unless only
	// Latency is set.
	Err     error
	Latency time.Duration
}

type state struct {
	Fault
	calls  int
	failed int
}

// Store wraps another store and makes selected operations slow or failing.
type Store struct {
	store.Store
	tracer trace.Tracer

	mu     sync.Mutex
	faults map[string]*state
}

func Wrap(inner store.Store) *Store {
	return &Store{
		Store:  inner,
		tracer: otel.Tracer("librastore/faultstore"),
		faults: make(map[string]*state),
	}
}

// Inject replaces the fault registered for op.
func (s *Store) Inject(op string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &state{Fault: f}
}

// Heal removes every registered fault.
func (s *Store) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]*state)
}

// Calls reports how many times op was invoked since it was injected.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.faults[op]; ok {
		return st.calls
	}
	return 0
}

func (s *Store) check(ctx context.Context, op string) error {
	s.mu.Lock()
	st, ok := s.faults[op]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	st.calls++
	active := st.calls > st.After && (st.Times == 0 || st.failed < st.Times)
	if active {
		st.failed++
	}
	f := st.Fault
	s.mu.Unlock()

	if !active {
		return nil
	}
	_, span := s.tracer.Start(ctx, "faultstore.inject", trace.WithAttributes(
		attribute.String("op", op),
		attribute.Int64("latency_ms", f.Latency.Milliseconds()),
	))
	defer span.End()

	if f.Latency > 0 {
		select {
		case <-time.After(f.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	switch {
	case f.Err != nil:
		return f.Err
	case f.Latency > 0:
		return nil
	}
	return ErrInjected
}

func (s *Store) Books() store.BookRepository       { return bookRepo{s.Store.Books(), s} }
func (s *Store) Users() store.UserRepository       { return userRepo{s.Store.Users(), s} }
func (s *Store) Invoices() store.InvoiceRepository { return invoiceRepo{s.Store.Invoices(), s} }

func (s *Store) NextID(ctx context.Context, collection string) (int64, error) {
	if err := s.check(ctx, OpNextID); err != nil {
		return 0, err
	}
	return s.Store.NextID(ctx, collection)
}

func (s *Store) NextInvoiceNumber(ctx context.Context) (int64, error) {
	if err := s.check(ctx, OpNextInvoiceNumber); err != nil {
		return 0, err
	}
	return s.Store.NextInvoiceNumber(ctx)
}

type bookRepo struct {
	store.BookRepository
	s *Store
}

func (r bookRepo) DecrementStock(ctx context.Context, id int64, qty int) error {
	if err := r.s.check(ctx, OpDecrementStock); err != nil {
		return err
	}
	return r.BookRepository.DecrementStock(ctx, id, qty)
}

func (r bookRepo) IncrementStock(ctx context.Context, id int64, qty int) error {
	if err := r.s.check(ctx, OpIncrementStock); err != nil {
		return err
	}
	return r.BookRepository.IncrementStock(ctx, id, qty)
}

type userRepo struct {
	store.UserRepository
	s *Store
}

func (r userRepo) SaveCart(ctx context.Context, clientID int64, cart *models.Cart, expectedVersion int64) (*models.Cart, error) {
	if err := r.s.check(ctx, OpSaveCart); err != nil {
		return nil, err
	}
	return r.UserRepository.SaveCart(ctx, clientID, cart, expectedVersion)
}

type invoiceRepo struct {
	store.InvoiceRepository
	s *Store
}

func (r invoiceRepo) Insert(ctx context.Context, inv *models.Invoice) error {
	if err := r.s.check(ctx, OpInsertInvoice); err != nil {
		return err
	}
	return r.InvoiceRepository.Insert(ctx, inv)
}
