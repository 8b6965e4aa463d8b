package testutils

import (
	"time"

	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// NewTestRecordID creates a new RecordID for testing purposes.
func NewTestRecordID(table string) *surrealmodels.RecordID {
	id := surrealmodels.NewRecordID(table, uuid.NewString())
	return &id
}

func stamp() *surrealmodels.CustomDateTime {
	return &surrealmodels.CustomDateTime{Time: time.Now().UTC()}
}

func key(id *surrealmodels.RecordID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func same(a, b *surrealmodels.RecordID) bool {
	return a != nil && b != nil && a.String() == b.String()
}
