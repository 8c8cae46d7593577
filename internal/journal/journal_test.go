package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncodesPayload(t *testing.T) {
	e, err := New(Book, 42, BookAdded, map[string]string{"isbn": "123"})
	require.NoError(t, err)

	assert.Equal(t, "42", e.AggregateID)
	assert.Equal(t, Book, e.AggregateType)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.JSONEq(t, `{"isbn":"123"}`, string(e.Data))
}

func TestMemoryRejectsDuplicateIDs(t *testing.T) {
	m := NewMemory()
	e, err := New(User, 1, UserRegistered, nil)
	require.NoError(t, err)

	require.NoError(t, m.Append(context.Background(), e))
	assert.ErrorIs(t, m.Append(context.Background(), e), ErrDuplicateEvent)
	assert.Equal(t, []string{UserRegistered}, m.Types())
}

// setupTestDB connects to the database named by PG* variables, skipping when
// it is unreachable.
func setupTestDB(t *testing.T) *Postgres {
	t.Helper()

	dsn := os.Getenv("JOURNAL_DSN")
	if dsn == "" {
		get := func(k, def string) string {
			if v := os.Getenv(k); v != "" {
				return v
			}
			return def
		}
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			get("PGHOST", "localhost"), get("PGPORT", "5432"), get("PGUSER", "user"),
			get("PGPASSWORD", "password"), get("PGDATABASE", "testdb"))
	}

	p, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Skipf("skipping journal tests: could not connect to postgres: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPostgresAppendAndLoad(t *testing.T) {
	p := setupTestDB(t)
	ctx := context.Background()

	aggregate := int64(uuid.New().ID())
	added, err := New(Invoice, aggregate, InvoiceIssued, map[string]int64{"numero": 7})
	require.NoError(t, err)

	require.NoError(t, p.Append(ctx, added))
	assert.ErrorIs(t, p.Append(ctx, added), ErrDuplicateEvent)

	events, err := p.Load(ctx, Invoice, added.AggregateID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, added.ID, events[0].ID)

	var payload map[string]int64
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	assert.Equal(t, int64(7), payload["numero"])
}
