package handlers

import (
	"time"

	"github.com/pliiiz/pliiiz/internal/domain"
)

// ErrorResponse is the standard format for API error responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UserResponse is the public view of the authenticated user.
type UserResponse struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// NewUserResponse creates a UserResponse from a domain.User.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: domain.IDString(u.ID), Email: u.Email, Role: u.Role}
}

// SessionResponse is returned by signup and signin.
type SessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      UserResponse    `json:"user"`
	Profile   *domain.Profile `json:"profile,omitempty"`
}
