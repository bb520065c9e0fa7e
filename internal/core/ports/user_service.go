package ports

import (
	"context"

	"github.com/clubhub/user-service/internal/core/domain"
)

// CreateUserInput carries all data needed to provision a new account.
// The password is generated by the identity provider gateway and mailed to
// the user; it is never part of the input.
type CreateUserInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      domain.Role
}

// UpdateUserInput has partial-update semantics: nil fields are left
// untouched both remotely and locally.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// UserService defines the orchestration operations consumed by the HTTP
// layer. Every call takes the acting principal explicitly.
type UserService interface {
	Create(ctx context.Context, actor domain.Principal, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, actor domain.Principal, id string) (*domain.User, error)
	List(ctx context.Context, actor domain.Principal) ([]*domain.User, error)
	Update(ctx context.Context, actor domain.Principal, id string, in UpdateUserInput) (*domain.User, error)
	ResetCredential(ctx context.Context, actor domain.Principal, id string, newPassword string) error
	Delete(ctx context.Context, actor domain.Principal, id string) error
}
