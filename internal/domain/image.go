package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// LibraryImage is a reusable gift image indexed by normalized label and by
// category and attributes.
type LibraryImage struct {
	ID              *surrealmodels.RecordID       `json:"id,omitempty"`
	Hash            string                        `json:"hash"`
	Label           string                        `json:"label"`
	NormalizedLabel string                        `json:"normalized_label"`
	Category        string                        `json:"category"`
	Attributes      map[string]string             `json:"attributes,omitempty"`
	URL             string                        `json:"url"`
	Source          ImageSource                   `json:"source"`
	CreatedAt       *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

// ImageLibrary defines storage operations for the image library.
type ImageLibrary interface {
	FindByNormalizedLabel(ctx context.Context, normalized string) (*LibraryImage, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]*LibraryImage, error)
	// Upsert inserts or replaces the entry keyed by Hash.
	Upsert(ctx context.Context, img *LibraryImage) (*LibraryImage, error)
}

// JobStatus tracks an image regeneration job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Active reports whether the job still has work pending.
func (s JobStatus) Active() bool {
	return s == JobQueued || s == JobRunning
}

// RegenJob is a queued request to regenerate the image for an idea hash.
type RegenJob struct {
	ID          *surrealmodels.RecordID       `json:"id,omitempty"`
	Hash        string                        `json:"hash"`
	Label       string                        `json:"label"`
	Category    string                        `json:"category"`
	Attributes  map[string]string             `json:"attributes,omitempty"`
	RequestedBy *surrealmodels.RecordID       `json:"requested_by,omitempty"`
	Status      JobStatus                     `json:"status"`
	Attempts    int                           `json:"attempts"`
	LastError   string                        `json:"last_error,omitempty"`
	ResultURL   string                        `json:"result_url,omitempty"`
	CreatedAt   *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
	UpdatedAt   *surrealmodels.CustomDateTime `json:"updated_at,omitempty"`
}

// RegenJobRepository defines storage operations for regeneration jobs.
type RegenJobRepository interface {
	FindByHash(ctx context.Context, hash string) (*RegenJob, error)
	Create(ctx context.Context, job *RegenJob) (*RegenJob, error)
	// Requeue resets a finished job to queued.
	Requeue(ctx context.Context, id *surrealmodels.RecordID) (*RegenJob, error)
	ListByStatus(ctx context.Context, status JobStatus, limit int) ([]*RegenJob, error)
	// Claim moves a queued job to running. It reports false when another
	// worker claimed the job first.
	Claim(ctx context.Context, id *surrealmodels.RecordID) (bool, error)
	Complete(ctx context.Context, id *surrealmodels.RecordID, resultURL string) error
	// Fail records an error. The job goes back to queued when requeue is set
	// and to failed otherwise.
	Fail(ctx context.Context, id *surrealmodels.RecordID, msg string, requeue bool) error
}
