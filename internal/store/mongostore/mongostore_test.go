package mongostore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"librastore/internal/models"
	"librastore/internal/store"
	"librastore/internal/store/storetest"
)

func connect(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping mongo store tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name := "librastore_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	s, err := Connect(ctx, uri, name, zap.NewNop())
	if err != nil {
		t.Skipf("mongo not reachable: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Drop(ctx)
		s.Close(ctx)
	})
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return connect(t) })
}

func TestPricesStoredAsDecimal128(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	b := storetest.Book("9780", "Tristana", 1, "19.99")
	b.ID = 1
	require.NoError(t, s.Books().Insert(ctx, b))

	var raw bson.Raw
	require.NoError(t, s.books.FindOne(ctx, bson.M{"_id": int64(1)}).Decode(&raw))
	assert.Equal(t, "19.99", raw.Lookup("precio").Decimal128().String())

	got, err := s.Books().Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))
}

func TestDecodeLegacyDoublePrice(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	_, err := s.books.InsertOne(ctx, bson.M{"_id": int64(7), "isbn": "x", "titulo": "Viejo", "precio": 12.5, "stock": 2})
	require.NoError(t, err)

	got, err := s.Books().Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.5")))
}

func TestSaveCartIgnoresAdmins(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	admin := &models.User{ID: 3, Email: "adm@example.com", Role: models.RoleAdmin}
	require.NoError(t, s.Users().Insert(ctx, admin))

	_, err := s.Users().SaveCart(ctx, 3, models.NewCart(), 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
