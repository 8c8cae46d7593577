// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"librastore/internal/apperr"
	"librastore/internal/journal"
	"librastore/internal/models"
	"librastore/internal/store"
)

// service implements the Service interface.
type service struct {
	store   store.Store
	journal journal.Journal
	logger  *zap.Logger
}

// NewService creates a new catalog service instance.
func NewService(st store.Store, j journal.Journal, logger *zap.Logger) Service {
	return &service{
		store:   st,
		journal: j,
		logger:  logger.Named("catalog"),
	}
}

func (s *service) Create(ctx context.Context, in BookInput) (*models.Book, error) {
	if err := validateNew(in); err != nil {
		return nil, err
	}
	b := &models.Book{}
	in.apply(b)
	if err := validateBook(b); err != nil {
		return nil, err
	}

	if _, err := s.store.Books().FindByISBN(ctx, b.ISBN); err == nil {
		return nil, apperr.Conflictf("a book with ISBN %s already exists", b.ISBN)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("look up isbn: %w", err)
	}

	id, err := s.store.NextID(ctx, store.CollectionBooks)
	if err != nil {
		return nil, fmt.Errorf("allocate book id: %w", err)
	}
	b.ID = id

	if err := s.store.Books().Insert(ctx, b); err != nil {
		return nil, s.translate(err, b.ID, b.ISBN)
	}

	s.record(ctx, b.ID, journal.BookAdded, b)
	s.logger.Info("book added", zap.Int64("book_id", b.ID), zap.String("isbn", b.ISBN))
	return b, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Book, error) {
	b, err := s.store.Books().Get(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "")
	}
	return b, nil
}

func (s *service) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	b, err := s.store.Books().FindByISBN(ctx, isbn)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("book with ISBN %s not found", isbn)
	}
	if err != nil {
		return nil, fmt.Errorf("find book by isbn: %w", err)
	}
	return b, nil
}

func (s *service) SearchTitle(ctx context.Context, q string) ([]*models.Book, error) {
	books, err := s.store.Books().SearchTitle(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search titles: %w", err)
	}
	return books, nil
}

func (s *service) List(ctx context.Context) ([]*models.Book, error) {
	books, err := s.store.Books().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Update merges the supplied fields into the stored book.
func (s *service) Update(ctx context.Context, id int64, in BookInput) (*models.Book, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldISBN := b.ISBN
	in.apply(b)
	if err := validateBook(b); err != nil {
		return nil, err
	}

	if b.ISBN != oldISBN {
		other, err := s.store.Books().FindByISBN(ctx, b.ISBN)
		switch {
		case err == nil && other.ID != id:
			return nil, apperr.Conflictf("a book with ISBN %s already exists", b.ISBN)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("look up isbn: %w", err)
		}
	}

	if err := s.store.Books().Update(ctx, b); err != nil {
		return nil, s.translate(err, id, b.ISBN)
	}

	s.record(ctx, b.ID, journal.BookUpdated, b)
	return b, nil
}

// ReplaceAll wipes the catalog and creates each input in order. It stops at
// the first invalid input; books created before it are kept.
func (s *service) ReplaceAll(ctx context.Context, inputs []BookInput) ([]*models.Book, error) {
	if err := s.DeleteAll(ctx); err != nil {
		return nil, err
	}
	created := make([]*models.Book, 0, len(inputs))
	for i, in := range inputs {
		b, err := s.Create(ctx, in)
		if err != nil {
			return created, fmt.Errorf("book %d: %w", i, err)
		}
		created = append(created, b)
	}
	return created, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Books().Delete(ctx, id); err != nil {
		return s.translate(err, id, "")
	}
	s.record(ctx, id, journal.BookRemoved, BookRemovedEvent{ID: id, ISBN: b.ISBN})
	return nil
}

func (s *service) DeleteAll(ctx context.Context) error {
	books, err := s.List(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Books().DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete books: %w", err)
	}
	for _, b := range books {
		s.record(ctx, b.ID, journal.BookRemoved, BookRemovedEvent{ID: b.ID, ISBN: b.ISBN})
	}
	return nil
}

func (s *service) translate(err error, id int64, isbn string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFoundf("book %d not found", id)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflictf("a book with ISBN %s already exists", isbn)
	default:
		return fmt.Errorf("book %d: %w", id, err)
	}
}

// record journals an event. Failures are logged, never returned.
func (s *service) record(ctx context.Context, id int64, eventType string, payload any) {
	e, err := journal.New(journal.Book, id, eventType, payload)
	if err == nil {
		err = s.journal.Append(ctx, e)
	}
	if err != nil {
		s.logger.Warn("journal append failed",
			zap.String("event", eventType), zap.Int64("book_id", id), zap.Error(err))
	}
}
