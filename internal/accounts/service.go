// internal/accounts/service.go
package accounts

import (
	"context"

	"librastore/internal/models"
)

// Service manages clients and admins. Role-scoped calls accept
// models.AnyRole to match both.
type Service interface {
	Create(ctx context.Context, in UserInput) (*models.User, error)
	Get(ctx context.Context, role models.Role, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, role models.Role, email string) (*models.User, error)
	GetByNationalID(ctx context.Context, role models.Role, nationalID string) (*models.User, error)
	List(ctx context.Context, role models.Role) ([]*models.User, error)
	Update(ctx context.Context, role models.Role, id int64, in UserInput) (*models.User, error)
	Delete(ctx context.Context, role models.Role, id int64) error
	Authenticate(ctx context.Context, role models.Role, email, password string) (*models.User, error)
	ReplaceAll(ctx context.Context, role models.Role, inputs []UserInput) ([]*models.User, error)
	DeleteAll(ctx context.Context, role models.Role) error
}
