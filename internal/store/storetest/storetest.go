// internal/store/storetest/storetest.go

// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librastore/internal/models"
	"librastore/internal/store"
)

// Factory returns an empty store; the caller's cleanup closes it.
type Factory func(t *testing.T) store.Store

// Run exercises a backend against the repository contracts.
func Run(t *testing.T, newStore Factory) {
	t.Run("books", func(t *testing.T) { testBooks(t, newStore(t)) })
	t.Run("stock", func(t *testing.T) { testStock(t, newStore(t)) })
	t.Run("concurrent_decrement", func(t *testing.T) { testConcurrentDecrement(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("cart_versions", func(t *testing.T) { testCartVersions(t, newStore(t)) })
	t.Run("invoices", func(t *testing.T) { testInvoices(t, newStore(t)) })
	t.Run("counters_and_reset", func(t *testing.T) { testCounters(t, newStore(t)) })
}

func Book(isbn, title string, stock int, price string) *models.Book {
	return &models.Book{
		ISBN:    isbn,
		Title:   title,
		Authors: "Autor " + isbn,
		Stock:   stock,
		Price:   decimal.RequireFromString(price),
	}
}

func Client(email string) *models.User {
	return &models.User{
		NationalID: "DNI-" + email,
		Name:       "Nombre",
		Surnames:   "Apellidos",
		Address:    "Calle 1",
		Email:      email,
		Password:   "secret",
		Role:       models.RoleClient,
		Cart:       models.NewCart(),
	}
}

func insertBook(t *testing.T, s store.Store, b *models.Book) *models.Book {
	t.Helper()
	ctx := context.Background()
	id, err := s.NextID(ctx, store.CollectionBooks)
	require.NoError(t, err)
	b.ID = id
	require.NoError(t, s.Books().Insert(ctx, b))
	return b
}

func insertUser(t *testing.T, s store.Store, u *models.User) *models.User {
	t.Helper()
	ctx := context.Background()
	id, err := s.NextID(ctx, store.CollectionUsers)
	require.NoError(t, err)
	u.ID = id
	require.NoError(t, s.Users().Insert(ctx, u))
	return u
}

func testBooks(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Books()

	a := insertBook(t, s, Book("111", "El Quijote", 3, "12.50"))
	insertBook(t, s, Book("222", "La Regenta", 1, "9.99"))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "El Quijote", got.Title)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.5")))

	byISBN, err := repo.FindByISBN(ctx, "222")
	require.NoError(t, err)
	assert.Equal(t, "La Regenta", byISBN.Title)

	_, err = repo.FindByISBN(ctx, "999")
	assert.ErrorIs(t, err, store.ErrNotFound)

	dup := Book("111", "Copia", 1, "1")
	dup.ID, err = s.NextID(ctx, store.CollectionBooks)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, dup), store.ErrDuplicate)

	found, err := repo.SearchTitle(ctx, "quij")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	found, err = repo.SearchTitle(ctx, "q.i")
	require.NoError(t, err)
	assert.Empty(t, found)

	got.Title = "Don Quijote"
	got.Stock = 7
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Don Quijote", got.Title)
	assert.Equal(t, 7, got.Stock)

	got.ISBN = "222"
	assert.ErrorIs(t, repo.Update(ctx, got), store.ErrDuplicate)

	// Mutating a returned copy must not leak into the store.
	got.Title = "scratch"
	again, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Don Quijote", again.Title)

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), store.ErrNotFound)

	require.NoError(t, repo.DeleteAll(ctx))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testStock(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Books()
	b := insertBook(t, s, Book("333", "Niebla", 2, "10"))

	require.NoError(t, repo.DecrementStock(ctx, b.ID, 2))
	assert.ErrorIs(t, repo.DecrementStock(ctx, b.ID, 1), store.ErrInsufficientStock)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	require.NoError(t, repo.IncrementStock(ctx, b.ID, 5))
	got, err = repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	assert.ErrorIs(t, repo.DecrementStock(ctx, b.ID+1000, 1), store.ErrNotFound)
}

func testConcurrentDecrement(t *testing.T, s store.Store) {
	ctx := context.Background()
	b := insertBook(t, s, Book("444", "Luces de bohemia", 3, "8"))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Books().DecrementStock(ctx, b.ID, 1); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), wins.Load())
	got, err := s.Books().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Users()

	c := insertUser(t, s, Client("ana@example.com"))
	admin := insertUser(t, s, &models.User{
		NationalID: "A1", Name: "Root", Email: "root@example.com",
		Password: "admin", Role: models.RoleAdmin,
	})

	_, err := s.NextID(ctx, store.CollectionUsers)
	require.NoError(t, err)
	dup := Client("ana@example.com")
	dup.ID = c.ID + 1000
	assert.ErrorIs(t, repo.Insert(ctx, dup), store.ErrDuplicate)

	byEmail, err := repo.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, byEmail.ID)
	assert.Nil(t, byEmail.Cart)

	byDNI, err := repo.FindByNationalID(ctx, c.NationalID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, byDNI.ID)
	require.NotNil(t, byDNI.Cart)

	clients, err := repo.List(ctx, models.RoleClient)
	require.NoError(t, err)
	assert.Len(t, clients, 1)
	everyone, err := repo.List(ctx, models.AnyRole)
	require.NoError(t, err)
	assert.Len(t, everyone, 2)

	// Update never touches role or cart.
	_, err = repo.SaveCart(ctx, c.ID, cartWith(5, 1, "3"), 0)
	require.NoError(t, err)
	patch := byDNI.Clone()
	patch.Name = "Ana"
	patch.Role = models.RoleAdmin
	patch.Cart = models.NewCart()
	require.NoError(t, repo.Update(ctx, patch))
	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, models.RoleClient, got.Role)
	require.NotNil(t, got.Cart)
	assert.Len(t, got.Cart.Items, 1)

	patch.Email = "root@example.com"
	assert.ErrorIs(t, repo.Update(ctx, patch), store.ErrDuplicate)

	require.NoError(t, repo.DeleteByRole(ctx, models.RoleAdmin))
	everyone, err = repo.List(ctx, models.AnyRole)
	require.NoError(t, err)
	require.Len(t, everyone, 1)
	assert.Equal(t, c.ID, everyone[0].ID)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.Get(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func cartWith(bookID int64, qty int, price string) *models.Cart {
	c := models.NewCart()
	c.Add(bookID, decimal.RequireFromString(price), qty)
	return c
}

func testCartVersions(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Users()
	c := insertUser(t, s, Client("luis@example.com"))

	saved, err := repo.SaveCart(ctx, c.ID, cartWith(1, 2, "10"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)
	assert.True(t, saved.Total.Equal(decimal.RequireFromString("24.2")))

	_, err = repo.SaveCart(ctx, c.ID, models.NewCart(), 0)
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Cart.Items, 1)
	assert.Equal(t, 2, got.Cart.Items[0].Quantity)
	assert.Equal(t, saved.Items[0].Key, got.Cart.Items[0].Key)

	_, err = repo.SaveCart(ctx, c.ID+1000, models.NewCart(), 0)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Exactly one of several writers racing on the same version wins.
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.SaveCart(ctx, c.ID, models.NewCart(), 1); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func testInvoices(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Invoices()
	c := insertUser(t, s, Client("eva@example.com"))
	b := insertBook(t, s, Book("555", "Fortunata", 4, "15"))

	newInvoice := func(client *models.User) *models.Invoice {
		t.Helper()
		id, err := s.NextID(ctx, store.CollectionInvoices)
		require.NoError(t, err)
		n, err := s.NextInvoiceNumber(ctx)
		require.NoError(t, err)
		inv := &models.Invoice{
			ID:        id,
			Number:    n,
			Date:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			LegalName: client.Name,
			Client:    client.Snapshot(),
			Items:     models.NewInvoiceLines(cartWith(b.ID, 2, "15"), map[int64]*models.Book{b.ID: b}),
		}
		inv.Recalculate()
		require.NoError(t, repo.Insert(ctx, inv))
		return inv
	}

	first := newInvoice(c)
	second := newInvoice(c)
	assert.Equal(t, first.Number+1, second.Number)

	got, err := repo.FindByNumber(ctx, second.Number)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("36.3")))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Fortunata", got.Items[0].Book.Title)
	assert.True(t, got.Date.Equal(first.Date))

	dup := first.Clone()
	dup.ID = second.ID + 1000
	assert.ErrorIs(t, repo.Insert(ctx, dup), store.ErrDuplicate)

	mine, err := repo.ListByClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	none, err := repo.ListByClient(ctx, c.ID+1000)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.Get(ctx, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.DeleteAll(ctx))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testCounters(t *testing.T, s store.Store) {
	ctx := context.Background()

	id1, err := s.NextID(ctx, store.CollectionBooks)
	require.NoError(t, err)
	id2, err := s.NextID(ctx, store.CollectionBooks)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	n1, err := s.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	n2, err := s.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, n1+1, n2)

	insertBook(t, s, Book("666", "Marianela", 1, "5"))
	insertUser(t, s, Client("pio@example.com"))

	require.NoError(t, s.Reset(ctx))

	books, err := s.Books().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
	users, err := s.Users().List(ctx, models.AnyRole)
	require.NoError(t, err)
	assert.Empty(t, users)

	n, err := s.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	id, err := s.NextID(ctx, store.CollectionBooks)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}
