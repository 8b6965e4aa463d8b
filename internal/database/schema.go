package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/surrealdb/surrealdb.go"
)

//go:embed schema.surql
var schema string

// ApplySchema defines every table and index the stores rely on. All
// statements are IF NOT EXISTS, so running it on each start is safe.
func ApplySchema(ctx context.Context, conn DBConnection) error {
	db, err := conn.DB()
	if err != nil {
		return err
	}
	results, err := surrealdb.Query[any](ctx, db, schema, nil)
	if err != nil {
		return WrapError(err, "apply schema")
	}
	if results != nil {
		for i, r := range *results {
			if r.Status != "" && r.Status != "OK" {
				return NewDBError(fmt.Errorf("%w: statement %d returned %s", ErrQueryFailed, i, r.Status), "apply schema")
			}
		}
	}
	slog.InfoContext(ctx, "Database schema applied", "event", "db_schema_applied")
	return nil
}
