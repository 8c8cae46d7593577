package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"librastore/internal/models"
	"librastore/internal/store"
	"librastore/internal/store/storetest"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	return s, path
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := openTemp(t)
		return s
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	id, err := s.NextID(ctx, store.CollectionBooks)
	require.NoError(t, err)
	b := storetest.Book("978", "Tirano Banderas", 2, "11.95")
	b.ID = id
	require.NoError(t, s.Books().Insert(ctx, b))

	n, err := s.NextInvoiceNumber(ctx)
	require.NoError(t, err)

	reopened, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	got, err := reopened.Books().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Tirano Banderas", got.Title)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("11.95")))

	next, err := reopened.NextID(ctx, store.CollectionUsers)
	require.NoError(t, err)
	assert.Equal(t, id+1, next)
	nextNumber, err := reopened.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, n+1, nextNumber)
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, path := openTemp(t)

	books, err := s.Books().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadedClientsAlwaysHaveCart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	raw := `{"users":[{"_id":4,"email":"a@b.c","rol":"CLIENTE"}],"lastId":4}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	u, err := s.Users().Get(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, u.Cart)
	assert.True(t, u.Cart.Empty())
	assert.Equal(t, models.RoleClient, u.Role)
}

func TestFailedSaveRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	b := storetest.Book("1", "Pepita Jiménez", 1, "4")
	b.ID = 1
	require.NoError(t, s.Books().Insert(ctx, b))

	// A directory squatting on the target makes the rename fail.
	s.path = filepath.Join(dir, "blocked")
	require.NoError(t, os.Mkdir(s.path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.path, "x"), nil, 0o644))

	err = s.Books().DecrementStock(ctx, 1, 1)
	require.Error(t, err)

	got, err := s.Books().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}
