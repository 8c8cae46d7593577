// cmd/librastore/seed.go
package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"librastore/internal/accounts"
	"librastore/internal/catalog"
	"librastore/internal/models"
	"librastore/internal/store"
)

var (
	seedISBNs       = []string{"978-3-16-148410-0", "978-3-16-148410-1", "978-3-16-148410-2"}
	seedPrices      = []string{"12.95", "19.50", "24.00"}
	seedAdminDNIs   = []string{"00000000A", "00000001A"}
	seedClientDNIs  = []string{"00000000C", "00000001C"}
	seedBookStock   = 5
	seedEmailDomain = "tsw.uclm.es"
)

// seed wipes the store and loads a small demo data set. Every user's password
// is its DNI.
func seed(ctx context.Context, st store.Store, books catalog.Service, users accounts.Service, logger *zap.Logger) error {
	if err := st.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	inputs := make([]catalog.BookInput, len(seedISBNs))
	for i, isbn := range seedISBNs {
		inputs[i] = seedBook(isbn, decimal.RequireFromString(seedPrices[i]))
	}
	if _, err := books.ReplaceAll(ctx, inputs); err != nil {
		return fmt.Errorf("seed books: %w", err)
	}

	people := []struct {
		role models.Role
		dnis []string
	}{
		{models.RoleAdmin, seedAdminDNIs},
		{models.RoleClient, seedClientDNIs},
	}
	for _, p := range people {
		for _, dni := range p.dnis {
			if _, err := users.Create(ctx, seedPerson(dni, p.role)); err != nil {
				return fmt.Errorf("seed user %s: %w", dni, err)
			}
		}
	}

	logger.Info("seed completed",
		zap.Int("books", len(seedISBNs)),
		zap.Int("admins", len(seedAdminDNIs)),
		zap.Int("clients", len(seedClientDNIs)),
	)
	return nil
}

func seedBook(isbn string, price decimal.Decimal) catalog.BookInput {
	title := "TITULO_" + isbn
	authors := fmt.Sprintf("AUTOR_A%s; AUTOR_B%s", isbn, isbn)
	summary := fmt.Sprintf("Lorem ipsum..._[%s]", isbn)
	cover := "http://google.com/" + isbn
	stock := seedBookStock
	return catalog.BookInput{
		ISBN:    &isbn,
		Title:   &title,
		Authors: &authors,
		Summary: &summary,
		Cover:   &cover,
		Stock:   &stock,
		Price:   &price,
	}
}

func seedPerson(dni string, role models.Role) accounts.UserInput {
	return accounts.UserInput{
		NationalID: dni,
		Name:       "Nombre " + dni,
		Surnames:   fmt.Sprintf("Apellido_1%s Apellido_2%s", dni, dni),
		Address:    "Direccion " + dni,
		Email:      dni + "@" + seedEmailDomain,
		Password:   dni,
		Role:       string(role),
	}
}
