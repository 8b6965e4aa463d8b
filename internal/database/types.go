package database

import (
	"context"

	"github.com/surrealdb/surrealdb.go"
)

// DBConnection hands out the current SurrealDB handle. *Connection
// implements it; the handle may change after a reconnect, so callers fetch it
// per operation.
type DBConnection interface {
	DB() (*surrealdb.DB, error)
}

// Client defines the main database client interface with type-safe methods.
// It provides a generic interface for database operations on a specific type T.
type Client[T any] interface {
	// Create inserts a new record into the specified table with the given data.
	// Returns the created record with all fields populated, including any server-generated fields.
	Create(ctx context.Context, table string, data any) (*T, error)

	// Select retrieves a record by its full ID (e.g., "user:123").
	// Returns ErrNotFound if no record exists with the given ID.
	Select(ctx context.Context, id string) (*T, error)

	// Update merges data into the record with the given ID.
	// Returns ErrNotFound if no record exists with the given ID.
	Update(ctx context.Context, id string, data any) (*T, error)

	// Delete removes a record with the given ID.
	Delete(ctx context.Context, id string) error

	// Query executes a raw query and returns the rows of its first statement.
	Query(ctx context.Context, query string, params map[string]any) ([]T, error)

	// QueryOne executes a raw query and returns a single result.
	// Returns (nil, nil) if no results are found.
	QueryOne(ctx context.Context, query string, params map[string]any) (*T, error)

	// Execute runs a query whose result is not needed.
	Execute(ctx context.Context, query string, params map[string]any) error
}

// QueryExecutor handles the execution of database queries.
// This interface is used internally by the Client implementation.
type QueryExecutor[T any] interface {
	Query(ctx context.Context, query string, params map[string]any) ([]T, error)
	QueryOne(ctx context.Context, query string, params map[string]any) (*T, error)
	Execute(ctx context.Context, query string, params map[string]any) error
}

// ClientOption defines a function that configures a Client.
type ClientOption[T any] func(*client[T])

// WithExecutor configures the client to use a custom QueryExecutor.
// This is useful for testing or for adding middleware to the executor.
func WithExecutor[T any](executor QueryExecutor[T]) ClientOption[T] {
	return func(c *client[T]) {
		c.executor = executor
	}
}
