// internal/models/user.go
package models

// Role tags a user as a client or an administrator.
type Role string

const (
	AnyRole    Role = ""
	RoleClient Role = "CLIENTE"
	RoleAdmin  Role = "ADMIN"
)

// ParseRole accepts only the two concrete roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleClient, RoleAdmin:
		return Role(s), true
	default:
		return AnyRole, false
	}
}

// Matches reports whether r satisfies the filter; AnyRole matches every role.
func (r Role) Matches(filter Role) bool {
	return filter == AnyRole || r == filter
}

// User is the shared record of both roles. Cart is set only when Role is
// RoleClient.
type User struct {
	ID         int64  `json:"_id" bson:"_id"`
	NationalID string `json:"dni" bson:"dni"`
	Name       string `json:"nombre" bson:"nombre"`
	Surnames   string `json:"apellidos" bson:"apellidos"`
	Address    string `json:"direccion" bson:"direccion"`
	Email      string `json:"email" bson:"email"`
	Password   string `json:"password,omitempty" bson:"password"`
	Role       Role   `json:"rol" bson:"rol"`
	Cart       *Cart  `json:"carro,omitempty" bson:"carro,omitempty"`
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

func (u *User) Clone() *User {
	c := *u
	if u.Cart != nil {
		c.Cart = u.Cart.Clone()
	}
	return &c
}

// Public returns a copy safe to hand to API callers.
func (u *User) Public() *User {
	c := u.Clone()
	c.Password = ""
	return c
}

// ClientSnapshot is the client data frozen into an invoice.
type ClientSnapshot struct {
	ID         int64  `json:"_id" bson:"_id"`
	NationalID string `json:"dni" bson:"dni"`
	Name       string `json:"nombre" bson:"nombre"`
	Surnames   string `json:"apellidos" bson:"apellidos"`
	Address    string `json:"direccion" bson:"direccion"`
	Email      string `json:"email" bson:"email"`
}

func (u *User) Snapshot() ClientSnapshot {
	return ClientSnapshot{
		ID:         u.ID,
		NationalID: u.NationalID,
		Name:       u.Name,
		Surnames:   u.Surnames,
		Address:    u.Address,
		Email:      u.Email,
	}
}
