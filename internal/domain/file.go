package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// FileKind groups stored objects by the feature that produced them.
type FileKind string

const (
	FileKindAvatar    FileKind = "avatar"
	FileKindGiftImage FileKind = "gift_image"
)

// File represents the metadata for an object in the storage bucket.
// The content itself lives in the storage backend under StoragePath.
type File struct {
	ID          *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner       *surrealmodels.RecordID       `json:"owner,omitempty"`
	Kind        FileKind                      `json:"kind" validate:"required,oneof=avatar gift_image"`
	Filename    string                        `json:"filename" validate:"required,min=1,max=255"`
	MIMEType    string                        `json:"mime_type" validate:"required"`
	Size        int64                         `json:"size" validate:"gte=0"`
	StoragePath string                        `json:"storage_path" validate:"required,safepath"`
	CreatedAt   *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

// Validate runs validation checks on the File struct using the defined tags.
func (f *File) Validate() error {
	return Validate(f)
}

// FileRepository stores metadata for objects written to the storage bucket.
type FileRepository interface {
	Create(ctx context.Context, file *File) (*File, error)
	FindByStoragePath(ctx context.Context, storagePath string) (*File, error)
	DeleteByStoragePath(ctx context.Context, storagePath string) error
	ListByOwner(ctx context.Context, owner *surrealmodels.RecordID, kind FileKind) ([]*File, error)
}

// Pagination constants
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
