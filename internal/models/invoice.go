// internal/models/invoice.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLine is a value copy of a cart item at purchase time.
type InvoiceLine struct {
	Book     Book            `json:"libro" bson:"libro"`
	Quantity int             `json:"cantidad" bson:"cantidad"`
	Total    decimal.Decimal `json:"total" bson:"total"`
}

// Invoice is the immutable record of a purchase.
type Invoice struct {
	ID         int64           `json:"_id" bson:"_id"`
	Number     int64           `json:"numero" bson:"numero"`
	Date       time.Time       `json:"fecha" bson:"fecha"`
	LegalName  string          `json:"razonSocial" bson:"razonSocial"`
	Address    string          `json:"direccion" bson:"direccion"`
	Email      string          `json:"email" bson:"email"`
	NationalID string          `json:"dni" bson:"dni"`
	Client     ClientSnapshot  `json:"cliente" bson:"cliente"`
	Items      []InvoiceLine   `json:"items" bson:"items"`
	Subtotal   decimal.Decimal `json:"subtotal" bson:"subtotal"`
	VAT        decimal.Decimal `json:"iva" bson:"iva"`
	Total      decimal.Decimal `json:"total" bson:"total"`
}

// Recalculate derives the invoice totals from its lines, exactly as a cart does.
func (inv *Invoice) Recalculate() {
	lines := make([]decimal.Decimal, len(inv.Items))
	for i := range inv.Items {
		lines[i] = inv.Items[i].Total
	}
	inv.Subtotal, inv.VAT, inv.Total = totals(lines)
}

func (inv *Invoice) Clone() *Invoice {
	c := *inv
	c.Items = append([]InvoiceLine(nil), inv.Items...)
	return &c
}

// NewInvoiceLines freezes the cart lines together with the given book copies.
func NewInvoiceLines(cart *Cart, books map[int64]*Book) []InvoiceLine {
	lines := make([]InvoiceLine, 0, len(cart.Items))
	for _, it := range cart.Items {
		line := InvoiceLine{Quantity: it.Quantity, Total: it.Total}
		if b, ok := books[it.BookID]; ok {
			line.Book = *b
		} else {
			line.Book = Book{ID: it.BookID, Price: it.Price}
		}
		lines = append(lines, line)
	}
	return lines
}
