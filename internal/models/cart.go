// internal/models/cart.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart. Book is a weak reference: only BookID is
// persisted, Book is filled on read.
type CartItem struct {
	Key      string          `json:"key" bson:"key"`
	BookID   int64           `json:"libroId" bson:"libroId"`
	Quantity int             `json:"cantidad" bson:"cantidad"`
	Price    decimal.Decimal `json:"precio" bson:"precio"`
	Total    decimal.Decimal `json:"total" bson:"total"`
	Book     *Book           `json:"libro,omitempty" bson:"-"`
}

func (i *CartItem) recalculate() {
	i.Total = LineTotal(i.Quantity, i.Price)
}

// Cart holds at most one item per book. Version increases on every save.
type Cart struct {
	Items    []CartItem      `json:"items" bson:"items"`
	Subtotal decimal.Decimal `json:"subtotal" bson:"subtotal"`
	VAT      decimal.Decimal `json:"iva" bson:"iva"`
	Total    decimal.Decimal `json:"total" bson:"total"`
	Version  int64           `json:"version" bson:"version"`
}

func NewCart() *Cart {
	return &Cart{Items: []CartItem{}}
}

// Recalculate refreshes the aggregate from the cached line totals.
func (c *Cart) Recalculate() {
	lines := make([]decimal.Decimal, len(c.Items))
	for i := range c.Items {
		lines[i] = c.Items[i].Total
	}
	c.Subtotal, c.VAT, c.Total = totals(lines)
}

func (c *Cart) Find(bookID int64) (int, bool) {
	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			return i, true
		}
	}
	return -1, false
}

// Add merges qty into the line for bookID, appending one if needed, and
// returns a copy of the resulting line.
func (c *Cart) Add(bookID int64, price decimal.Decimal, qty int) CartItem {
	i, ok := c.Find(bookID)
	if !ok {
		c.Items = append(c.Items, CartItem{Key: uuid.NewString(), BookID: bookID})
		i = len(c.Items) - 1
	}
	item := &c.Items[i]
	item.Quantity += qty
	item.Price = price
	item.recalculate()
	c.Recalculate()
	return *item
}

// KeyAt resolves a positional index to the item's stable key.
func (c *Cart) KeyAt(index int) (string, bool) {
	if index < 0 || index >= len(c.Items) {
		return "", false
	}
	return c.Items[index].Key, true
}

func (c *Cart) indexOf(key string) int {
	for i := range c.Items {
		if c.Items[i].Key == key {
			return i
		}
	}
	return -1
}

// SetQuantity sets the quantity of the keyed item at the given unit price.
// Zero removes the item. It reports false when the key is unknown.
func (c *Cart) SetQuantity(key string, qty int, price decimal.Decimal) bool {
	i := c.indexOf(key)
	if i < 0 {
		return false
	}
	if qty == 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = qty
		c.Items[i].Price = price
		c.Items[i].recalculate()
	}
	c.Recalculate()
	return true
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Recalculate()
}

func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy without resolved book references.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make([]CartItem, len(c.Items))
	for i, it := range c.Items {
		it.Book = nil
		out.Items[i] = it
	}
	return &out
}
