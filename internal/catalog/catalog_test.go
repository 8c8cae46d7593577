package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"librastore/internal/apperr"
	"librastore/internal/journal"
	"librastore/internal/models"
	"librastore/internal/store/filestore"
)

func newTestService(t *testing.T) (Service, *journal.Memory) {
	t.Helper()
	st, err := filestore.Open(filepath.Join(t.TempDir(), "data.json"), zap.NewNop())
	require.NoError(t, err)
	j := journal.NewMemory()
	return NewService(st, j, zap.NewNop()), j
}

func ptr[T any](v T) *T { return &v }

func input(isbn, title string, stock int, price string) BookInput {
	return BookInput{
		ISBN:  ptr(isbn),
		Title: ptr(title),
		Stock: ptr(stock),
		Price: ptr(decimal.RequireFromString(price)),
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]BookInput{
		"missing isbn":   {Title: ptr("x"), Price: ptr(decimal.NewFromInt(1))},
		"blank isbn":     {ISBN: ptr("  "), Price: ptr(decimal.NewFromInt(1))},
		"missing price":  {ISBN: ptr("1")},
		"negative price": input("1", "x", 0, "-0.01"),
		"negative stock": input("1", "x", -1, "1"),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, in)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	books, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestCreateRejectsDuplicateISBN(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, input("978-1", "Marina", 3, "9.95"))
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = svc.Create(ctx, input("978-1", "Otra", 1, "1"))
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	books, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestUpdateMergesFields(t *testing.T) {
	svc, j := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, input("1", "Niebla", 2, "10"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, input("2", "Abel Sánchez", 2, "10"))
	require.NoError(t, err)

	got, err := svc.Update(ctx, b.ID, BookInput{Stock: ptr(9), Summary: ptr("nivola")})
	require.NoError(t, err)
	assert.Equal(t, "Niebla", got.Title)
	assert.Equal(t, 9, got.Stock)
	assert.Equal(t, "nivola", got.Summary)

	_, err = svc.Update(ctx, b.ID, BookInput{Price: ptr(decimal.NewFromInt(-1))})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(ctx, b.ID, BookInput{ISBN: ptr("2")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.Update(ctx, 999, BookInput{Stock: ptr(1)})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	stored, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", stored.ISBN)
	assert.True(t, stored.Price.Equal(decimal.NewFromInt(10)))

	assert.Equal(t, []string{journal.BookAdded, journal.BookAdded, journal.BookUpdated}, j.Types())
}

func TestSearchTitleReturnsEveryMatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i, title := range []string{"Historia de dos ciudades", "Breve historia del tiempo", "Rayuela"} {
		_, err := svc.Create(ctx, input(string(rune('a'+i)), title, 1, "5"))
		require.NoError(t, err)
	}

	found, err := svc.SearchTitle(ctx, "HISTORIA")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestDeleteAndReplaceAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, input("1", "Niebla", 2, "10"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, b.ID))
	assert.True(t, apperr.Is(svc.Delete(ctx, b.ID), apperr.KindNotFound))

	created, err := svc.ReplaceAll(ctx, []BookInput{
		input("10", "Uno", 1, "1"),
		input("11", "Dos", 1, "2"),
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	created, err = svc.ReplaceAll(ctx, []BookInput{
		input("20", "Tres", 1, "1"),
		{Title: ptr("sin isbn")},
		input("21", "Cuatro", 1, "1"),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	require.Len(t, created, 1)

	books, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "20", books[0].ISBN)
}

func newTestRouter(t *testing.T) (http.Handler, Service) {
	svc, _ := newTestService(t)
	r := chi.NewRouter()
	NewHandler(svc, zap.NewNop()).Routes(r)
	return r, svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndFilter(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/libros", `{"isbn":"84-1","titulo":"La Colmena","stock":2,"precio":12.5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Price.Equal(decimal.RequireFromString("12.5")))
	assert.Contains(t, rec.Body.String(), `"precio":12.5`)

	rec = do(t, h, http.MethodPost, "/libros", `{"isbn":"84-1","precio":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = do(t, h, http.MethodGet, "/libros?isbn=84-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(t, h, http.MethodGet, "/libros?isbn=nope", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/libros/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/libros/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerReplaceAndDelete(t *testing.T) {
	h, svc := newTestRouter(t)

	rec := do(t, h, http.MethodPut, "/libros", `[{"isbn":"1","precio":1},{"isbn":"2","precio":2}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list []models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	path := "/libros/" + jsonID(list[0].ID)
	rec = do(t, h, http.MethodPut, path, `{"stock":4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/libros", "")
	require.Equal(t, http.StatusOK, rec.Code)
	books, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func jsonID(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
