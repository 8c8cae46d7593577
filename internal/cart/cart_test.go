package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"librastore/internal/apperr"
	"librastore/internal/models"
	"librastore/internal/store"
	"librastore/internal/store/filestore"
	"librastore/internal/store/storetest"
)

type fixture struct {
	store  store.Store
	svc    Service
	client *models.User
	book   *models.Book
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := filestore.Open(filepath.Join(t.TempDir(), "data.json"), zap.NewNop())
	require.NoError(t, err)

	f := &fixture{store: st, svc: NewService(st, zap.NewNop())}
	f.book = f.addBook(t, "1", "10")

	c := storetest.Client("c@x.es")
	c.ID, err = st.NextID(ctx, store.CollectionUsers)
	require.NoError(t, err)
	require.NoError(t, st.Users().Insert(ctx, c))
	f.client = c
	return f
}

func (f *fixture) addBook(t *testing.T, isbn, price string) *models.Book {
	t.Helper()
	ctx := context.Background()
	b := storetest.Book(isbn, "Libro "+isbn, 100, price)
	id, err := f.store.NextID(ctx, store.CollectionBooks)
	require.NoError(t, err)
	b.ID = id
	require.NoError(t, f.store.Books().Insert(ctx, b))
	return b
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAddItemComputesTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.AddItem(ctx, f.client.ID, f.book.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.Total.Equal(dec("20")))
	require.NotNil(t, item.Book)

	c, err := f.svc.Get(ctx, f.client.ID)
	require.NoError(t, err)
	assert.True(t, c.Subtotal.Equal(dec("20")))
	assert.True(t, c.VAT.Equal(dec("4.2")))
	assert.True(t, c.Total.Equal(dec("24.2")))
	require.Len(t, c.Items, 1)
	require.NotNil(t, c.Items[0].Book)
	assert.Equal(t, f.book.Title, c.Items[0].Book.Title)
}

func TestAddItemMergesSameBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.client.ID, f.book.ID, 2)
	require.NoError(t, err)
	item, err := f.svc.AddItem(ctx, f.client.ID, f.book.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	c, err := f.svc.Get(ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.True(t, c.Items[0].Total.Equal(dec("50")))
}

func TestAddItemErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.client.ID, f.book.ID, -1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.AddItem(ctx, f.client.ID, 999, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.AddItem(ctx, 999, f.book.ID, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSetItemQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.addBook(t, "2", "3.5")

	_, err := f.svc.AddItem(ctx, f.client.ID, f.book.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.client.ID, other.ID, 1)
	require.NoError(t, err)

	c, err := f.svc.SetItemQuantity(ctx, f.client.ID, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[1].Quantity)
	assert.True(t, c.Subtotal.Equal(dec("24")))

	_, err = f.svc.SetItemQuantity(ctx, f.client.ID, 0, -1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.SetItemQuantity(ctx, f.client.ID, 2, 1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	c, err = f.svc.SetItemQuantity(ctx, f.client.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, other.ID, c.Items[0].BookID)

	c, err = f.svc.SetItemQuantity(ctx, f.client.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.client.ID, f.book.ID, 3)
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(ctx, f.client.ID))

	c, err := f.svc.Get(ctx, f.client.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Subtotal.IsZero())
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.AddItem(ctx, f.client.ID, f.book.ID, 1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.True(t, apperr.Is(err, apperr.KindConflict), "unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	c, err := f.svc.Get(ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, ok, c.Items[0].Quantity)
}

func TestHandler(t *testing.T) {
	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/clientes", NewHandler(f.svc, zap.NewNop()).Routes)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
	base := fmt.Sprintf("/clientes/%d/carro", f.client.ID)

	rec := do(http.MethodPost, base+"/items", fmt.Sprintf(`{"libro":%d,"cantidad":2}`, f.book.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var c struct {
		Items []struct {
			Quantity int             `json:"cantidad"`
			Book     *models.Book    `json:"libro"`
			Total    decimal.Decimal `json:"total"`
		} `json:"items"`
		Total decimal.Decimal `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.Len(t, c.Items, 1)
	require.NotNil(t, c.Items[0].Book)
	assert.True(t, c.Total.Equal(dec("24.2")))

	rec = do(http.MethodPut, base+"/items/0", `{"cantidad":-2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPut, base+"/items/x", `{"cantidad":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPut, base+"/items/0", `{"cantidad":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, "/clientes/999/carro", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
