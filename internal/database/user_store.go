package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ domain.UserRepository = (*UserStore)(nil)

// userFields never includes the password hash.
const userFields = "id, email, role, created_at"

// UserStore implements domain.UserRepository. Password hashing and
// verification happen inside SurrealDB with crypto::argon2.
type UserStore struct {
	client Client[domain.User]
}

// NewUserStore creates a new user repository with a type-safe client.
func NewUserStore(conn DBConnection, cfg config.Provider) (*UserStore, error) {
	c, err := NewClient[domain.User](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &UserStore{client: c}, nil
}

// Create registers a user with a hashed password.
func (s *UserStore) Create(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	existing, err := s.client.QueryOne(ctx, "SELECT id FROM user WHERE email = $email", map[string]any{"email": email})
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrUserAlreadyExists
	}

	query := `CREATE user CONTENT {
		email: $email,
		password: crypto::argon2::generate($password),
		role: 'user',
		created_at: time::now()
	} RETURN ` + userFields
	user, err := s.client.QueryOne(ctx, query, map[string]any{"email": email, "password": password})
	if err != nil {
		if isDuplicateError(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return notFoundIfNil(user, "created user not returned")
}

// VerifyCredentials compares the password against the stored hash.
func (s *UserStore) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	query := "SELECT " + userFields + " FROM user WHERE email = $email AND crypto::argon2::compare(password, $password)"
	user, err := s.client.QueryOne(ctx, query, map[string]any{"email": normalizeEmail(email), "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// FindByID retrieves a user by record ID.
func (s *UserStore) FindByID(ctx context.Context, id *surrealmodels.RecordID) (*domain.User, error) {
	user, err := s.client.QueryOne(ctx, "SELECT "+userFields+" FROM $id", map[string]any{"id": id})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(user, "user")
}

// FindByEmail retrieves a user by their email address.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.client.QueryOne(ctx, "SELECT "+userFields+" FROM user WHERE email = $email", map[string]any{"email": normalizeEmail(email)})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(user, "user")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
