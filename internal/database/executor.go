package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// surrealExecutor runs queries against whichever handle the connection
// currently holds.
type surrealExecutor[T any] struct {
	conn DBConnection
}

// NewSurrealExecutor creates a QueryExecutor backed by SurrealDB.
func NewSurrealExecutor[T any](conn DBConnection) QueryExecutor[T] {
	return &surrealExecutor[T]{conn: conn}
}

// Query executes a raw SurrealQL query with parameters and returns the rows
// of the first statement.
func (e *surrealExecutor[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	db, err := e.conn.DB()
	if err != nil {
		return nil, err
	}
	queryResults, err := surrealdb.Query[[]T](ctx, db, query, params)
	if err != nil {
		return nil, NewDBError(fmt.Errorf("%w: %v", ErrQueryFailed, err), "query failed").WithQuery(query)
	}
	if queryResults == nil || len(*queryResults) == 0 {
		return nil, nil
	}
	first := (*queryResults)[0]
	if first.Status != "" && first.Status != "OK" {
		return nil, NewDBError(fmt.Errorf("%w: status %s", ErrQueryFailed, first.Status), "query failed").WithQuery(query)
	}
	return first.Result, nil
}

// QueryOne executes a query and returns a single result.
// If no results are found, it returns nil, nil.
func (e *surrealExecutor[T]) QueryOne(ctx context.Context, query string, params map[string]any) (*T, error) {
	// CREATE/UPDATE/DELETE statements don't support LIMIT.
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") && !hasLimitClause(query) {
		query += " LIMIT 1"
	}
	results, err := e.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Execute runs a query and discards its results.
func (e *surrealExecutor[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	db, err := e.conn.DB()
	if err != nil {
		return err
	}
	results, err := surrealdb.Query[any](ctx, db, query, params)
	if err != nil {
		return NewDBError(fmt.Errorf("%w: %v", ErrQueryFailed, err), "execute failed").WithQuery(query)
	}
	if results != nil {
		for _, r := range *results {
			if r.Status != "" && r.Status != "OK" {
				return NewDBError(fmt.Errorf("%w: status %s", ErrQueryFailed, r.Status), "execute failed").WithQuery(query)
			}
		}
	}
	return nil
}

// hasLimitClause checks if the query already has a LIMIT clause
func hasLimitClause(query string) bool {
	query = " " + strings.ToUpper(query) + " "
	return strings.Contains(query, " LIMIT ")
}
