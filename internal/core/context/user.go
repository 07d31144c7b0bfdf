// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains authenticated staff member information.
type UserContext struct {
	UserID   string
	GarageID string
	Email    string
	Roles    []string
	IsAdmin  bool
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetGarageID returns the garage claimed by the token, or empty string.
// Domain code must use tenant.RequireGarage instead; this is for logging.
func GetGarageID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.GarageID
	}
	return ""
}
