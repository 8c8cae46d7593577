// internal/store/filestore/filestore.go
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"librastore/internal/models"
	"librastore/internal/store"
)

// state is the on-disk layout.
type state struct {
	Books             []*models.Book    `json:"books"`
	Users             []*models.User    `json:"users"`
	Invoices          []*models.Invoice `json:"invoices"`
	LastID            int64             `json:"lastId"`
	LastInvoiceNumber int64             `json:"lastInvoiceNumber"`
}

func emptyState() state {
	return state{
		Books:    []*models.Book{},
		Users:    []*models.User{},
		Invoices: []*models.Invoice{},
	}
}

// Store keeps the whole object graph in memory and rewrites the file after
// every mutation. Safe for concurrent use within one process only.
type Store struct {
	mu     sync.RWMutex
	path   string
	data   state
	saved  []byte
	tracer trace.Tracer
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Open loads path if it exists, or starts empty.
func Open(path string, logger *zap.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		data:   emptyState(),
		tracer: otel.Tracer("librastore/filestore"),
		logger: logger,
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("data file not found, starting empty", zap.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("read data file: %w", err)
	default:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("decode data file: %w", err)
		}
		s.normalize()
		s.saved = raw
		logger.Info("data file loaded",
			zap.String("path", path),
			zap.Int("books", len(s.data.Books)),
			zap.Int("users", len(s.data.Users)),
			zap.Int("invoices", len(s.data.Invoices)),
		)
	}
	return s, nil
}

func (s *Store) normalize() {
	if s.data.Books == nil {
		s.data.Books = []*models.Book{}
	}
	if s.data.Users == nil {
		s.data.Users = []*models.User{}
	}
	if s.data.Invoices == nil {
		s.data.Invoices = []*models.Invoice{}
	}
	for _, u := range s.data.Users {
		if u.IsClient() && u.Cart == nil {
			u.Cart = models.NewCart()
		}
	}
}

func (s *Store) Books() store.BookRepository       { return bookRepo{s} }
func (s *Store) Users() store.UserRepository       { return userRepo{s} }
func (s *Store) Invoices() store.InvoiceRepository { return invoiceRepo{s} }

// NextID hands out ids from one counter shared by all collections.
func (s *Store) NextID(ctx context.Context, _ string) (int64, error) {
	var id int64
	err := s.mutate(ctx, "next_id", func() error {
		s.data.LastID++
		id = s.data.LastID
		return nil
	})
	return id, err
}

func (s *Store) NextInvoiceNumber(ctx context.Context) (int64, error) {
	var n int64
	err := s.mutate(ctx, "next_invoice_number", func() error {
		s.data.LastInvoiceNumber++
		n = s.data.LastInvoiceNumber
		return nil
	})
	return n, err
}

// Reset empties every collection and rewinds both counters.
func (s *Store) Reset(ctx context.Context) error {
	return s.mutate(ctx, "reset", func() error {
		s.data = emptyState()
		return nil
	})
}

func (s *Store) Close(context.Context) error {
	return nil
}

// read runs fn under the read lock.
func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// mutate runs fn under the write lock and persists the result. When fn fails
// nothing is written; when the write fails the last saved state is restored.
func (s *Store) mutate(ctx context.Context, op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	if err := s.save(ctx, op); err != nil {
		s.rollback()
		return err
	}
	return nil
}

func (s *Store) rollback() {
	restored := emptyState()
	if len(s.saved) > 0 {
		if err := json.Unmarshal(s.saved, &restored); err != nil {
			s.logger.Error("restore last saved state", zap.Error(err))
			return
		}
	}
	s.data = restored
	s.normalize()
}

func (s *Store) save(ctx context.Context, op string) error {
	_, span := s.tracer.Start(ctx, "filestore.save",
		trace.WithAttributes(
			attribute.String("store.op", op),
			attribute.String("store.path", s.path),
		),
	)
	defer span.End()

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("encode state: %w", err)
	}

	// Write a sibling temp file and rename it over the target so a crash
	// never leaves a half-written data file.
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		span.RecordError(err)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		span.RecordError(err)
		return fmt.Errorf("replace data file: %w", err)
	}

	s.saved = raw
	span.SetAttributes(attribute.Int("store.bytes", len(raw)))
	return nil
}
