package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Role controls access to administrative operations.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the authentication identity. Public-facing data lives on Profile.
type User struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Email     string                        `json:"email"`
	Role      Role                          `json:"role"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserRepository defines the contract for user data storage operations.
type UserRepository interface {
	// Create registers a new user. The password is hashed by the store.
	// Returns ErrUserAlreadyExists when the email is taken.
	Create(ctx context.Context, email, password string) (*User, error)
	// VerifyCredentials returns the user when the password matches and
	// ErrInvalidCredentials otherwise.
	VerifyCredentials(ctx context.Context, email, password string) (*User, error)
	FindByID(ctx context.Context, id *surrealmodels.RecordID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
