package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAggregate(t require.TestingT, c *Cart) {
	sum := decimal.Zero
	for _, it := range c.Items {
		require.True(t, it.Total.Equal(LineTotal(it.Quantity, it.Price)), "line total %s", it.Total)
		sum = sum.Add(it.Total)
	}
	require.True(t, c.Subtotal.Equal(sum), "subtotal %s != %s", c.Subtotal, sum)
	require.True(t, c.VAT.Equal(sum.Mul(VATRate).Round(2)), "iva %s", c.VAT)
	require.True(t, c.Total.Equal(c.Subtotal.Add(c.VAT)), "total %s", c.Total)
}

func TestCartAddComputesTotals(t *testing.T) {
	c := NewCart()
	item := c.Add(1, dec("10"), 2)

	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.Total.Equal(dec("20")))
	assert.True(t, c.Subtotal.Equal(dec("20")))
	assert.True(t, c.VAT.Equal(dec("4.2")))
	assert.True(t, c.Total.Equal(dec("24.2")))
	assert.NotEmpty(t, item.Key)
}

func TestCartAddMergesSameBook(t *testing.T) {
	c := NewCart()
	first := c.Add(7, dec("3.50"), 1)
	second := c.Add(7, dec("3.50"), 4)

	require.Len(t, c.Items, 1)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.True(t, c.Items[0].Total.Equal(dec("17.50")))
}

func TestCartSetQuantityZeroRemoves(t *testing.T) {
	c := NewCart()
	c.Add(1, dec("9.99"), 3)

	key, ok := c.KeyAt(0)
	require.True(t, ok)
	require.True(t, c.SetQuantity(key, 0, dec("9.99")))

	assert.True(t, c.Empty())
	assert.True(t, c.Subtotal.IsZero())
	assert.True(t, c.VAT.IsZero())
	assert.True(t, c.Total.IsZero())
}

func TestCartKeyAtOutOfRange(t *testing.T) {
	c := NewCart()
	c.Add(1, dec("1"), 1)

	_, ok := c.KeyAt(1)
	assert.False(t, ok)
	_, ok = c.KeyAt(-1)
	assert.False(t, ok)
	assert.False(t, c.SetQuantity("missing", 2, dec("1")))
}

func TestCartCloneDropsResolvedBooks(t *testing.T) {
	c := NewCart()
	c.Add(1, dec("5"), 1)
	c.Items[0].Book = &Book{ID: 1, Title: "Dune"}

	clone := c.Clone()
	assert.Nil(t, clone.Items[0].Book)
	assert.NotNil(t, c.Items[0].Book)

	clone.Items[0].Quantity = 99
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestCartMergePropertyRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q1 := rapid.IntRange(0, 500).Draw(t, "q1")
		q2 := rapid.IntRange(0, 500).Draw(t, "q2")
		price := decimal.New(int64(rapid.IntRange(0, 100000).Draw(t, "cents")), -2)

		c := NewCart()
		c.Add(42, price, q1)
		c.Add(42, price, q2)

		require.Len(t, c.Items, 1)
		require.Equal(t, q1+q2, c.Items[0].Quantity)
		require.True(t, c.Items[0].Total.Equal(LineTotal(q1+q2, price)))
		assertAggregate(t, c)
	})
}

func TestCartAggregateInvariantRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := NewCart()
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			price := decimal.New(int64(rapid.IntRange(0, 20000).Draw(t, "cents")), -2)
			if len(c.Items) > 0 && rapid.Bool().Draw(t, "set") {
				idx := rapid.IntRange(0, len(c.Items)-1).Draw(t, "idx")
				key, ok := c.KeyAt(idx)
				require.True(t, ok)
				require.True(t, c.SetQuantity(key, rapid.IntRange(0, 50).Draw(t, "qty"), price))
			} else {
				c.Add(int64(rapid.IntRange(1, 5).Draw(t, "book")), price, rapid.IntRange(0, 50).Draw(t, "qty"))
			}
			assertAggregate(t, c)

			seen := map[int64]bool{}
			for _, it := range c.Items {
				require.False(t, seen[it.BookID], "duplicate line for book %d", it.BookID)
				seen[it.BookID] = true
			}
		}
	})
}
