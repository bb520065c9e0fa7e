package ports

import (
	"context"

	"github.com/clubhub/user-service/internal/core/domain"
)

// UserRepository defines persistence operations for users. Implementations
// must enforce unique constraints on username and email; a constraint
// violation surfaces as *domain.AlreadyExistsError. The store is the only
// concurrency backstop for racing creates.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindAll(ctx context.Context) ([]*domain.User, error)
	// Save inserts the user, or replaces the stored document when the id
	// already exists (update path).
	Save(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}
