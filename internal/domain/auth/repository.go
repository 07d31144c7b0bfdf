package auth

import (
	"context"

	"oficina/internal/core/id"
)

// UserRepository stores staff accounts. Emails are unique across garages, so
// login needs no garage in advance.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail returns NotFound for unknown addresses.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateLoginState saves the lockout counters and last login.
	UpdateLoginState(ctx context.Context, user *User) error
}
