package domain

import (
	"fmt"
	"regexp"
	"strings"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Table names shared by the stores and by ID parsing at the HTTP edge.
const (
	TableUser           = "user"
	TableProfile        = "profile"
	TablePreference     = "preference"
	TableContactRequest = "contact_request"
	TableContact        = "contact"
	TableNotification   = "notification"
	TablePushDevice     = "push_device"
	TableGiftIdea       = "gift_idea"
	TableGiftOffer      = "gift_offer"
	TableImageLibrary   = "image_library"
	TableImageJob       = "image_job"
	TableFile           = "file"
)

var recordKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ParseID accepts either "table:key" or a bare key and returns a record ID
// for the given table. Keys from other tables are rejected.
func ParseID(table, raw string) (*surrealmodels.RecordID, error) {
	key := raw
	if prefix, rest, ok := strings.Cut(raw, ":"); ok {
		if prefix != table {
			return nil, fmt.Errorf("%w: expected a %s id", ErrInvalidInput, table)
		}
		key = rest
	}
	key = strings.Trim(key, "⟨⟩`")
	if !recordKeyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: malformed %s id", ErrInvalidInput, table)
	}
	id := surrealmodels.NewRecordID(table, key)
	return &id, nil
}

// SameID reports whether two record IDs point at the same record.
func SameID(a, b *surrealmodels.RecordID) bool {
	if a == nil || b == nil {
		return false
	}
	return a.String() == b.String()
}

// IDString renders a record ID for API responses; nil renders as "".
func IDString(id *surrealmodels.RecordID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
