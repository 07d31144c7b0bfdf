package dto

import (
	"time"

	"oficina/internal/domain/auth"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts the request into domain credentials.
func (r LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{Email: r.Email, Password: r.Password}
}

// UserResponse is the public view of a staff member.
type UserResponse struct {
	ID       string   `json:"id"`
	GarageID string   `json:"garageId"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
	IsAdmin  bool     `json:"isAdmin"`
}

// LoginResponse carries the access token and the user.
type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	TokenType   string       `json:"tokenType"`
	User        UserResponse `json:"user"`
}

// NewLoginResponse combines a token with its user.
func NewLoginResponse(token *auth.AccessToken, u *auth.User) LoginResponse {
	return LoginResponse{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User:        FromUser(u),
	}
}

// FromUser maps a domain user.
func FromUser(u *auth.User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:       u.ID.String(),
		GarageID: u.GarageID.String(),
		Email:    u.Email,
		Name:     u.Name,
		Roles:    roles,
		IsAdmin:  u.IsAdmin,
	}
}
