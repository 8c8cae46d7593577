// internal/checkout/domain.go
package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	"librastore/internal/models"
)

// Billing is the purchase request. Blank fields fall back to the client's
// own data.
type Billing struct {
	ClientID   int64  `json:"cliente"`
	LegalName  string `json:"razonSocial"`
	Address    string `json:"direccion"`
	Email      string `json:"email"`
	NationalID string `json:"dni"`
}

func (b Billing) applyDefaults(u *models.User) Billing {
	or := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	fullName := strings.TrimSpace(u.Name + " " + u.Surnames)
	b.LegalName = or(b.LegalName, fullName)
	b.Address = or(b.Address, u.Address)
	b.Email = or(b.Email, u.Email)
	b.NationalID = or(b.NationalID, u.NationalID)
	return b
}

// InvoiceIssuedEvent is journaled for every purchase.
type InvoiceIssuedEvent struct {
	ID       int64           `json:"_id"`
	Number   int64           `json:"numero"`
	ClientID int64           `json:"cliente"`
	Lines    int             `json:"lineas"`
	Total    decimal.Decimal `json:"total"`
}
