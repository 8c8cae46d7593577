// internal/accounts/domain.go
package accounts

import (
	"strings"

	"librastore/internal/apperr"
	"librastore/internal/models"
)

const minPasswordLength = 4

// UserInput is the payload of create and partial update. Empty strings mean
// "not supplied" on update.
type UserInput struct {
	NationalID string `json:"dni"`
	Name       string `json:"nombre"`
	Surnames   string `json:"apellidos"`
	Address    string `json:"direccion"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"rol"`
}

// Credentials is the authenticate payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in UserInput) validate() (models.Role, error) {
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return models.AnyRole, apperr.Validationf("unknown role %q", in.Role)
	}
	if strings.TrimSpace(in.Email) == "" {
		return models.AnyRole, apperr.Validation("email is required")
	}
	if len(in.Password) < minPasswordLength {
		return models.AnyRole, apperr.Validationf("password must have at least %d characters", minPasswordLength)
	}
	return role, nil
}

func (in UserInput) newUser(role models.Role) *models.User {
	u := &models.User{
		NationalID: strings.TrimSpace(in.NationalID),
		Name:       in.Name,
		Surnames:   in.Surnames,
		Address:    in.Address,
		Email:      strings.TrimSpace(in.Email),
		Password:   in.Password,
		Role:       role,
	}
	if role == models.RoleClient {
		u.Cart = models.NewCart()
	}
	return u
}

// merge copies the supplied fields into u. Role and cart are never touched.
func (in UserInput) merge(u *models.User) error {
	if in.NationalID != "" {
		u.NationalID = strings.TrimSpace(in.NationalID)
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Surnames != "" {
		u.Surnames = in.Surnames
	}
	if in.Address != "" {
		u.Address = in.Address
	}
	if in.Email != "" {
		u.Email = strings.TrimSpace(in.Email)
	}
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return apperr.Validationf("password must have at least %d characters", minPasswordLength)
		}
		u.Password = in.Password
	}
	return nil
}

func roleName(role models.Role) string {
	switch role {
	case models.RoleClient:
		return "client"
	case models.RoleAdmin:
		return "admin"
	default:
		return "user"
	}
}

// UserRegisteredEvent is journaled on create; it never carries the password.
type UserRegisteredEvent struct {
	ID    int64       `json:"_id"`
	Email string      `json:"email"`
	Role  models.Role `json:"rol"`
}
