// Package auth_repo provides the PostgreSQL user repository.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/domain/auth"
	"oficina/internal/infrastructure/storage/postgres"
)

const userColumns = `id, garage_id, email, password_hash, name, is_active, is_admin, roles,
	last_login_at, failed_login_attempts, locked_until, created_at, updated_at`

// UserRepo implements auth.UserRepository. Users are looked up across
// garages: the email is unique and carries the garage.
type UserRepo struct {
	txManager *postgres.TxManager
}

var _ auth.UserRepository = (*UserRepo)(nil)

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		INSERT INTO users (
			id, garage_id, email, password_hash, name,
			is_active, is_admin, roles, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	_, err := q.Exec(ctx, query,
		user.ID, user.GarageID, user.Email, user.PasswordHash, user.Name,
		user.IsActive, user.IsAdmin, roles, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("user", "email", user.Email).WithCause(err)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	user, err := r.getOne(ctx, "id = $1", userID)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	return user, err
}

// GetByEmail retrieves user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, err := r.getOne(ctx, "email = $1", auth.NormalizeEmail(email))
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("user", email)
	}
	return user, err
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*auth.User, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	var user auth.User
	err := q.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.GarageID, &user.Email, &user.PasswordHash, &user.Name,
		&user.IsActive, &user.IsAdmin, &user.Roles,
		&user.LastLoginAt, &user.FailedLoginAttempts, &user.LockedUntil,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// UpdateLoginState saves lockout counters and the last login time.
func (r *UserRepo) UpdateLoginState(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		UPDATE users SET
			last_login_at = $2,
			failed_login_attempts = $3,
			locked_until = $4,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := q.Exec(ctx, query, user.ID, user.LastLoginAt, user.FailedLoginAttempts, user.LockedUntil)
	if err != nil {
		return fmt.Errorf("update user login state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", user.ID.String())
	}
	return nil
}
