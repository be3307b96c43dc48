package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// UserFilter narrows aggregate user queries.
type UserFilter struct {
	Role     *domain.Role
	IsActive *bool
}

// UserRepository exposes persistence behaviour for users. The engine only
// reads user records and asks the repository to mutate password hash,
// activity flag, and role.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByIdentifier resolves a case-normalised username or email,
	// restricted to active accounts.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash string, changedAt time.Time) (bool, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (bool, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	Count(ctx context.Context, filter UserFilter) (int, error)
}
