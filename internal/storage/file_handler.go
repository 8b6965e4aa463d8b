package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// MediaPrefix is the URL prefix under which bucket objects are served.
const MediaPrefix = "/media/"

// ImageTypes maps accepted image MIME types to their file extension.
var ImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Object describes a bucket object about to be written.
type Object struct {
	Owner    *surrealmodels.RecordID
	Kind     domain.FileKind
	Path     string
	Filename string
	MIMEType string
}

// Bucket pairs the object store with its metadata table.
type Bucket struct {
	store Store
	files domain.FileRepository
}

// NewBucket creates a Bucket.
func NewBucket(s Store, files domain.FileRepository) *Bucket {
	return &Bucket{store: s, files: files}
}

// Put stores the content and records its metadata. Writing to an existing
// path replaces the content and keeps the existing metadata row.
func (b *Bucket) Put(ctx context.Context, obj Object, content io.Reader) (*domain.File, error) {
	size, err := b.store.Save(ctx, obj.Path, content)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", obj.Path, err)
	}

	file := &domain.File{
		Owner:       obj.Owner,
		Kind:        obj.Kind,
		Filename:    obj.Filename,
		MIMEType:    obj.MIMEType,
		Size:        size,
		StoragePath: obj.Path,
	}
	created, err := b.files.Create(ctx, file)
	if errors.Is(err, domain.ErrConflict) {
		return b.files.FindByStoragePath(ctx, obj.Path)
	}
	if err != nil {
		// Attempt to clean up the stored object if metadata saving fails.
		_ = b.store.Delete(ctx, obj.Path)
		return nil, err
	}
	return created, nil
}

// Remove deletes the object and its metadata.
func (b *Bucket) Remove(ctx context.Context, storagePath string) error {
	if err := b.store.Delete(ctx, storagePath); err != nil {
		slog.WarnContext(ctx, "Failed to delete object from storage", "path", storagePath, "error", err)
	}
	return b.files.DeleteByStoragePath(ctx, storagePath)
}

// URL returns the public URL of a stored object.
func URL(storagePath string) string {
	return MediaPrefix + storagePath
}

// PathFromURL extracts the storage path from a media URL.
func PathFromURL(url string) (string, bool) {
	p, ok := strings.CutPrefix(url, MediaPrefix)
	return p, ok && p != ""
}

// ReadImage reads an uploaded image into memory, enforcing the size limit
// and sniffing the content type from the bytes rather than the header.
func ReadImage(fh *multipart.FileHeader, maxBytes int64) ([]byte, string, error) {
	if fh.Size > maxBytes {
		return nil, "", fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, maxBytes)
	}
	src, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, maxBytes)
	}
	mimeType := http.DetectContentType(data)
	if _, ok := ImageTypes[mimeType]; !ok {
		return nil, "", fmt.Errorf("%w: unsupported image type %s", domain.ErrInvalidInput, mimeType)
	}
	return data, mimeType, nil
}

// Serve streams a bucket object. Media is public: avatars and gift images
// appear on shared pages.
func (b *Bucket) Serve(c echo.Context) error {
	ctx := c.Request().Context()
	storagePath := path.Clean(strings.TrimPrefix(c.Param("*"), "/"))

	if err := domain.Validator().Var(storagePath, "required,safepath"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid path")
	}

	contentType := "application/octet-stream"
	if file, err := b.files.FindByStoragePath(ctx, storagePath); err == nil {
		contentType = file.MIMEType
	}

	content, err := b.store.Get(ctx, storagePath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		slog.ErrorContext(ctx, "Failed to get object from storage", "path", storagePath, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not retrieve file")
	}
	defer content.Close()

	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Stream(http.StatusOK, contentType, content)
}

// PutBytes is Put for in-memory content.
func (b *Bucket) PutBytes(ctx context.Context, obj Object, data []byte) (*domain.File, error) {
	return b.Put(ctx, obj, bytes.NewReader(data))
}
