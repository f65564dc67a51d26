package user

import (
	"context"

	"github.com/Gio21sr/oberfit/internal/auth"
	"github.com/Gio21sr/oberfit/internal/config"
)

type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	NameExists(ctx context.Context, name string) (bool, error)
	ListByRole(ctx context.Context, role auth.Role) ([]User, error)
	Delete(ctx context.Context, id int, policy config.DeletePolicy) (*DeleteResult, error)
}
