package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// var _ ensures that FileStore implements the domain.FileRepository interface at compile time.
var _ domain.FileRepository = (*FileStore)(nil)

// FileStore keeps metadata for objects written to the storage bucket.
type FileStore struct {
	client Client[domain.File]
}

// NewFileStore creates a file metadata repository.
func NewFileStore(conn DBConnection, cfg config.Provider) (*FileStore, error) {
	c, err := NewClient[domain.File](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &FileStore{client: c}, nil
}

// Create inserts a new file metadata record. Storage paths are unique.
func (s *FileStore) Create(ctx context.Context, file *domain.File) (*domain.File, error) {
	if file == nil {
		return nil, errors.New("file to create cannot be nil")
	}
	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed for file: %w", err)
	}

	created, err := s.client.Create(ctx, domain.TableFile, map[string]any{
		"owner":        file.Owner,
		"kind":         string(file.Kind),
		"filename":     file.Filename,
		"mime_type":    file.MIMEType,
		"size":         file.Size,
		"storage_path": file.StoragePath,
		"created_at":   now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", toDomainErr(err))
	}
	return created, nil
}

// FindByStoragePath retrieves file metadata by its storage path.
func (s *FileStore) FindByStoragePath(ctx context.Context, storagePath string) (*domain.File, error) {
	file, err := s.client.QueryOne(ctx, "SELECT * FROM file WHERE storage_path = $path", map[string]any{"path": storagePath})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(file, "file")
}

// DeleteByStoragePath removes the metadata row for a storage path.
func (s *FileStore) DeleteByStoragePath(ctx context.Context, storagePath string) error {
	return toDomainErr(s.client.Execute(ctx, "DELETE file WHERE storage_path = $path", map[string]any{"path": storagePath}))
}

// ListByOwner returns the owner's files of one kind, newest first.
func (s *FileStore) ListByOwner(ctx context.Context, owner *surrealmodels.RecordID, kind domain.FileKind) ([]*domain.File, error) {
	if owner == nil {
		return nil, NewDBError(ErrInvalidInput, "owner is required")
	}
	rows, err := s.client.Query(ctx,
		"SELECT * FROM file WHERE owner = $owner AND kind = $kind ORDER BY created_at DESC",
		map[string]any{"owner": owner, "kind": string(kind)})
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.File, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}
