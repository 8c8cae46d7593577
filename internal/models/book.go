// internal/models/book.go
package models

import "github.com/shopspring/decimal"

// Book is a catalog entry.
type Book struct {
	ID      int64           `json:"_id" bson:"_id"`
	ISBN    string          `json:"isbn" bson:"isbn"`
	Title   string          `json:"titulo" bson:"titulo"`
	Authors string          `json:"autores" bson:"autores"`
	Cover   string          `json:"portada" bson:"portada"`
	Summary string          `json:"resumen" bson:"resumen"`
	Stock   int             `json:"stock" bson:"stock"`
	Price   decimal.Decimal `json:"precio" bson:"precio"`
}

func (b *Book) Clone() *Book {
	c := *b
	return &c
}
