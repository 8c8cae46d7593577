// internal/catalog/domain.go
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"librastore/internal/apperr"
	"librastore/internal/models"
)

// BookInput carries the fields of a create or partial update. Nil fields are
// left untouched on update.
type BookInput struct {
	ISBN    *string          `json:"isbn"`
	Title   *string          `json:"titulo"`
	Authors *string          `json:"autores"`
	Cover   *string          `json:"portada"`
	Summary *string          `json:"resumen"`
	Stock   *int             `json:"stock"`
	Price   *decimal.Decimal `json:"precio"`
}

// apply merges the non-nil fields into b.
func (in BookInput) apply(b *models.Book) {
	if in.ISBN != nil {
		b.ISBN = strings.TrimSpace(*in.ISBN)
	}
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Authors != nil {
		b.Authors = *in.Authors
	}
	if in.Cover != nil {
		b.Cover = *in.Cover
	}
	if in.Summary != nil {
		b.Summary = *in.Summary
	}
	if in.Stock != nil {
		b.Stock = *in.Stock
	}
	if in.Price != nil {
		b.Price = *in.Price
	}
}

func validateNew(in BookInput) error {
	if in.ISBN == nil || strings.TrimSpace(*in.ISBN) == "" {
		return apperr.Validation("isbn is required")
	}
	if in.Price == nil {
		return apperr.Validation("precio is required")
	}
	return nil
}

func validateBook(b *models.Book) error {
	switch {
	case b.ISBN == "":
		return apperr.Validation("isbn is required")
	case b.Price.IsNegative():
		return apperr.Validation("precio must not be negative")
	case b.Stock < 0:
		return apperr.Validation("stock must not be negative")
	}
	return nil
}

// BookRemovedEvent is journaled when a book leaves the catalog.
type BookRemovedEvent struct {
	ID   int64  `json:"_id"`
	ISBN string `json:"isbn"`
}
