package database

import (
	"context"
	"strings"
	"time"

	"github.com/pliiiz/pliiiz/internal/config"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type client[T any] struct {
	executor       QueryExecutor[T]
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

// NewClient creates a new type-safe database client
func NewClient[T any](conn DBConnection, cfg config.Provider, opts ...ClientOption[T]) (Client[T], error) {
	if conn == nil {
		return nil, NewDBError(ErrInvalidInput, "connection cannot be nil")
	}
	if cfg == nil {
		return nil, NewDBError(ErrInvalidInput, "config provider cannot be nil")
	}

	queryTimeout := cfg.GetDBQueryTimeout()
	if queryTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_QUERY_TIMEOUT must be a positive duration")
	}
	executeTimeout := cfg.GetDBExecuteTimeout()
	if executeTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_EXECUTE_TIMEOUT must be a positive duration")
	}

	c := &client[T]{
		executor:       NewSurrealExecutor[T](conn),
		queryTimeout:   queryTimeout,
		executeTimeout: executeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Query implements the Client interface
func (c *client[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()
	return c.executor.Query(ctx, query, params)
}

// QueryOne implements the Client interface
func (c *client[T]) QueryOne(ctx context.Context, query string, params map[string]any) (*T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()
	return c.executor.QueryOne(ctx, query, params)
}

// Execute implements the Client interface
func (c *client[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()
	return c.executor.Execute(ctx, query, params)
}

// Create implements the Client interface
func (c *client[T]) Create(ctx context.Context, table string, data any) (*T, error) {
	if table == "" {
		return nil, NewDBError(ErrInvalidInput, "table cannot be empty")
	}
	if data == nil {
		return nil, NewDBError(ErrInvalidInput, "data cannot be nil")
	}

	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	result, err := c.executor.QueryOne(ctx, "CREATE type::table($table) CONTENT $data", map[string]any{"table": table, "data": data})
	if err != nil {
		if isDuplicateError(err) {
			return nil, NewDBError(ErrAlreadyExists, "create operation failed")
		}
		return nil, WrapError(err, "create operation failed")
	}
	return result, nil
}

// Select implements the Client interface
func (c *client[T]) Select(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, NewDBError(ErrInvalidInput, "id cannot be empty")
	}

	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()

	result, err := c.executor.QueryOne(ctx, "SELECT * FROM $id", map[string]any{"id": recordID(id)})
	if err != nil {
		return nil, WrapError(err, "select operation failed")
	}
	if result == nil {
		return nil, NewDBError(ErrNotFound, "record not found")
	}
	return result, nil
}

// Update implements the Client interface
func (c *client[T]) Update(ctx context.Context, id string, data any) (*T, error) {
	if id == "" {
		return nil, NewDBError(ErrInvalidInput, "id cannot be empty")
	}
	if data == nil {
		return nil, NewDBError(ErrInvalidInput, "data cannot be nil")
	}

	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	result, err := c.executor.QueryOne(ctx, "UPDATE $id MERGE $data", map[string]any{"id": recordID(id), "data": data})
	if err != nil {
		if isDuplicateError(err) {
			return nil, NewDBError(ErrAlreadyExists, "update operation failed")
		}
		return nil, WrapError(err, "update operation failed")
	}
	if result == nil {
		return nil, NewDBError(ErrNotFound, "record not found")
	}
	return result, nil
}

// Delete implements the Client interface
func (c *client[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewDBError(ErrInvalidInput, "id cannot be empty")
	}

	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	return c.executor.Execute(ctx, "DELETE $id", map[string]any{"id": recordID(id)})
}

// recordID turns "table:key" into a record id. Strings without a table
// prefix are passed through unchanged and rejected by the database.
func recordID(id string) any {
	table, key, ok := strings.Cut(id, ":")
	if !ok || table == "" || key == "" {
		return id
	}
	key = strings.Trim(key, "⟨⟩`")
	return surrealmodels.NewRecordID(table, key)
}
