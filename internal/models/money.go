// internal/models/money.go
package models

import "github.com/shopspring/decimal"

// VATRate is the fixed tax rate applied to every subtotal.
var VATRate = decimal.RequireFromString("0.21")

func init() {
	// Prices travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// VAT returns the tax owed on subtotal, rounded to cents.
func VAT(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(VATRate).Round(2)
}

// LineTotal is quantity × unit price.
func LineTotal(qty int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// totals derives subtotal, VAT and total from a set of line totals.
func totals(lines []decimal.Decimal) (subtotal, vat, total decimal.Decimal) {
	subtotal = decimal.Sum(decimal.Zero, lines...)
	vat = VAT(subtotal)
	total = subtotal.Add(vat)
	return subtotal, vat, total
}
