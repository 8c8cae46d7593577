package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvoiceLinesFreezesBooks(t *testing.T) {
	book := &Book{ID: 3, ISBN: "X", Title: "Dune", Stock: 4, Price: dec("12.5")}
	c := NewCart()
	c.Add(book.ID, book.Price, 2)

	inv := &Invoice{Items: NewInvoiceLines(c, map[int64]*Book{book.ID: book})}
	inv.Recalculate()

	book.Title = "Changed"
	book.Price = dec("99")

	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Dune", inv.Items[0].Book.Title)
	assert.True(t, inv.Items[0].Book.Price.Equal(dec("12.5")))
	assert.True(t, inv.Subtotal.Equal(c.Subtotal))
	assert.True(t, inv.VAT.Equal(c.VAT))
	assert.True(t, inv.Total.Equal(c.Total))
}

func TestBookJSONFieldNames(t *testing.T) {
	b := Book{ID: 1, ISBN: "978", Title: "T", Authors: "A", Summary: "S", Cover: "C", Stock: 5, Price: dec("10.5")}
	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, k := range []string{"_id", "isbn", "titulo", "autores", "resumen", "portada", "stock", "precio"} {
		assert.Contains(t, m, k)
	}
	assert.Equal(t, 10.5, m["precio"])
}

func TestUserPublicHidesPassword(t *testing.T) {
	u := &User{ID: 1, Email: "a@b.c", Password: "secret", Role: RoleClient, Cart: NewCart()}
	pub := u.Public()

	assert.Empty(t, pub.Password)
	assert.Equal(t, "secret", u.Password)
	assert.NotSame(t, u.Cart, pub.Cart)
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("CLIENTE")
	assert.True(t, ok)
	assert.Equal(t, RoleClient, r)

	_, ok = ParseRole("GUEST")
	assert.False(t, ok)

	assert.True(t, RoleAdmin.Matches(AnyRole))
	assert.False(t, RoleAdmin.Matches(RoleClient))
}
