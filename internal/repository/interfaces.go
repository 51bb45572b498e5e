package repository

import (
	"context"

	"github.com/atlaslabs/atlas-auth/internal/domain"
)

// UserRepository exposes the two persistence operations the auth flows need.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	// Insert stores a new account and returns it with the store-assigned ID.
	// Returns domain.ErrEmailTaken when the unique email index rejects it.
	Insert(ctx context.Context, user domain.User) (domain.User, error)
}
