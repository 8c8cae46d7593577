package faultstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"librastore/internal/store"
	"librastore/internal/store/filestore"
	"librastore/internal/store/storetest"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	st, err := filestore.Open(filepath.Join(t.TempDir(), "data.json"), zap.NewNop())
	require.NoError(t, err)
	return Wrap(st)
}

func TestPassThroughBehavesLikeInner(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newStore(t) })
}

func TestAfterAndTimes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	s.Inject(OpNextID, Fault{After: 1, Times: 2})

	_, err := s.NextID(ctx, store.CollectionBooks)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = s.NextID(ctx, store.CollectionBooks)
		assert.ErrorIs(t, err, ErrInjected)
	}
	id, err := s.NextID(ctx, store.CollectionBooks)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, 4, s.Calls(OpNextID))
}

func TestCustomErrorAndHeal(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	boom := errors.New("disk full")
	s.Inject(OpNextInvoiceNumber, Fault{Err: boom})

	_, err := s.NextInvoiceNumber(ctx)
	assert.ErrorIs(t, err, boom)

	s.Heal()
	n, err := s.NextInvoiceNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, s.Calls(OpNextInvoiceNumber))
}

func TestLatencyOnlyDelays(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	b := storetest.Book("1", "x", 3, "1")
	b.ID = 1
	require.NoError(t, s.Books().Insert(ctx, b))
	s.Inject(OpDecrementStock, Fault{Latency: 20 * time.Millisecond})

	start := time.Now()
	require.NoError(t, s.Books().DecrementStock(ctx, b.ID, 1))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	got, err := s.Books().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
}

func TestLatencyHonoursContext(t *testing.T) {
	s := newStore(t)
	s.Inject(OpInsertInvoice, Fault{Latency: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Invoices().Insert(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
