package database

import (
	"context"
	"fmt"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var (
	_ domain.ImageLibrary       = (*ImageLibraryStore)(nil)
	_ domain.RegenJobRepository = (*RegenJobStore)(nil)
)

// ImageLibraryStore implements domain.ImageLibrary. Entries are keyed by
// idea hash.
type ImageLibraryStore struct {
	client Client[domain.LibraryImage]
}

// NewImageLibraryStore creates an image library repository.
func NewImageLibraryStore(conn DBConnection, cfg config.Provider) (*ImageLibraryStore, error) {
	c, err := NewClient[domain.LibraryImage](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &ImageLibraryStore{client: c}, nil
}

func (s *ImageLibraryStore) FindByNormalizedLabel(ctx context.Context, normalized string) (*domain.LibraryImage, error) {
	img, err := s.client.QueryOne(ctx,
		"SELECT * FROM image_library WHERE normalized_label = $label ORDER BY created_at DESC",
		map[string]any{"label": normalized})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(img, "library image")
}

func (s *ImageLibraryStore) ListByCategory(ctx context.Context, category string, limit int) ([]*domain.LibraryImage, error) {
	if limit <= 0 {
		limit = domain.MaxPageSize
	}
	rows, err := s.client.Query(ctx,
		"SELECT * FROM image_library WHERE category = $category ORDER BY created_at DESC LIMIT $limit",
		map[string]any{"category": category, "limit": limit})
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.LibraryImage, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (s *ImageLibraryStore) Upsert(ctx context.Context, img *domain.LibraryImage) (*domain.LibraryImage, error) {
	if img.Hash == "" || img.URL == "" {
		return nil, fmt.Errorf("%w: library image needs a hash and a url", domain.ErrInvalidInput)
	}
	out, err := s.client.QueryOne(ctx,
		"UPSERT type::thing('image_library', $hash) CONTENT $data RETURN AFTER",
		map[string]any{
			"hash": img.Hash,
			"data": map[string]any{
				"hash":             img.Hash,
				"label":            img.Label,
				"normalized_label": img.NormalizedLabel,
				"category":         img.Category,
				"attributes":       img.Attributes,
				"url":              img.URL,
				"source":           string(img.Source),
				"created_at":       now(),
			},
		})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(out, "library image")
}

// RegenJobStore implements domain.RegenJobRepository. There is one job row
// per idea hash; finished jobs are requeued rather than duplicated.
type RegenJobStore struct {
	client Client[domain.RegenJob]
}

// NewRegenJobStore creates a regeneration job repository.
func NewRegenJobStore(conn DBConnection, cfg config.Provider) (*RegenJobStore, error) {
	c, err := NewClient[domain.RegenJob](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &RegenJobStore{client: c}, nil
}

func (s *RegenJobStore) FindByHash(ctx context.Context, hash string) (*domain.RegenJob, error) {
	job, err := s.client.QueryOne(ctx, "SELECT * FROM type::thing('image_job', $hash)", map[string]any{"hash": hash})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(job, "regeneration job")
}

func (s *RegenJobStore) Create(ctx context.Context, job *domain.RegenJob) (*domain.RegenJob, error) {
	ts := now()
	created, err := s.client.QueryOne(ctx,
		"CREATE type::thing('image_job', $hash) CONTENT $data",
		map[string]any{
			"hash": job.Hash,
			"data": map[string]any{
				"hash":         job.Hash,
				"label":        job.Label,
				"category":     job.Category,
				"attributes":   job.Attributes,
				"requested_by": job.RequestedBy,
				"status":       string(domain.JobQueued),
				"attempts":     0,
				"created_at":   ts,
				"updated_at":   ts,
			},
		})
	if err != nil {
		if isDuplicateError(err) {
			return nil, fmt.Errorf("%w: job for %s already exists", domain.ErrConflict, job.Hash)
		}
		return nil, fmt.Errorf("failed to create regeneration job: %w", err)
	}
	return notFoundIfNil(created, "created job not returned")
}

func (s *RegenJobStore) Requeue(ctx context.Context, id *surrealmodels.RecordID) (*domain.RegenJob, error) {
	job, err := s.client.QueryOne(ctx,
		"UPDATE $id SET status = 'queued', attempts = 0, last_error = NONE, updated_at = time::now() WHERE status IN ['done', 'failed'] RETURN AFTER",
		map[string]any{"id": id})
	if err != nil {
		return nil, toDomainErr(err)
	}
	if job != nil {
		return job, nil
	}
	// Still active; hand back the current row.
	current, err := s.client.QueryOne(ctx, "SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(current, "regeneration job")
}

func (s *RegenJobStore) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.RegenJob, error) {
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	rows, err := s.client.Query(ctx,
		"SELECT * FROM image_job WHERE status = $status ORDER BY created_at ASC LIMIT $limit",
		map[string]any{"status": string(status), "limit": limit})
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.RegenJob, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (s *RegenJobStore) Claim(ctx context.Context, id *surrealmodels.RecordID) (bool, error) {
	job, err := s.client.QueryOne(ctx,
		"UPDATE $id SET status = 'running', attempts += 1, updated_at = time::now() WHERE status = 'queued' RETURN AFTER",
		map[string]any{"id": id})
	if err != nil {
		return false, toDomainErr(err)
	}
	return job != nil, nil
}

func (s *RegenJobStore) Complete(ctx context.Context, id *surrealmodels.RecordID, resultURL string) error {
	return toDomainErr(s.client.Execute(ctx,
		"UPDATE $id SET status = 'done', result_url = $url, last_error = NONE, updated_at = time::now()",
		map[string]any{"id": id, "url": resultURL}))
}

func (s *RegenJobStore) Fail(ctx context.Context, id *surrealmodels.RecordID, msg string, requeue bool) error {
	status := domain.JobFailed
	if requeue {
		status = domain.JobQueued
	}
	return toDomainErr(s.client.Execute(ctx,
		"UPDATE $id SET status = $status, last_error = $msg, updated_at = time::now()",
		map[string]any{"id": id, "status": string(status), "msg": msg}))
}
