// Package images exposes the gift image pipeline: on-demand resolution, the
// regeneration queue and its admin controls, and the Unsplash proxy.
package images

import (
	"context"
	"fmt"
	"strings"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/giftimage"
	"github.com/pliiiz/pliiiz/internal/unsplash"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const (
	defaultJobLimit = 50
	maxJobLimit     = 200
	maxRegenItems   = 100
)

// RegenRequest is the params of request_gift_image_regen_resolve_many.
// Exactly one of Items and IdeaIDs is expected.
type RegenRequest struct {
	Items   []giftimage.Idea `json:"items" validate:"max=100,dive"`
	IdeaIDs []string         `json:"idea_ids" validate:"max=100,dive,required"`
}

// BatchInput is the body of POST /admin/images/regen.
type BatchInput struct {
	BatchSize int `json:"batch_size" validate:"gte=0,lte=100"`
}

// JobQuery filters GET /admin/images/jobs.
type JobQuery struct {
	Status domain.JobStatus `query:"status" validate:"omitempty,oneof=queued running done failed"`
	Limit  int              `query:"limit" validate:"gte=0,lte=200"`
}

// RescoreInput is the body of POST /admin/images/rescore.
type RescoreInput struct {
	Threshold float64 `json:"threshold" validate:"gte=0,lte=1"`
}

// SearchQuery is the query of GET /functions/unsplash/search.
type SearchQuery struct {
	Q    string `query:"q" validate:"required,max=200"`
	Page int    `query:"page" validate:"gte=0,lte=50"`
}

// TrackInput is the body of POST /functions/unsplash/track.
type TrackInput struct {
	DownloadLocation string `json:"download_location" validate:"required,url"`
}

// Deps are the collaborators of a Service.
type Deps struct {
	Resolver    *giftimage.Resolver
	Regenerator *giftimage.Regenerator
	Unsplash    *unsplash.Client
	Gifts       domain.GiftRepository
	// BatchSize is used when an admin batch does not name one.
	BatchSize int
}

// Service implements the image operations.
type Service struct {
	resolver    *giftimage.Resolver
	regenerator *giftimage.Regenerator
	unsplash    *unsplash.Client
	gifts       domain.GiftRepository
	batchSize   int
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	if d.BatchSize <= 0 {
		d.BatchSize = 10
	}
	return &Service{
		resolver:    d.Resolver,
		regenerator: d.Regenerator,
		unsplash:    d.Unsplash,
		gifts:       d.Gifts,
		batchSize:   d.BatchSize,
	}
}

// Generate runs the resolution chain for user.
func (s *Service) Generate(ctx context.Context, user *surrealmodels.RecordID, idea giftimage.Idea) (*giftimage.Resolution, error) {
	if err := domain.Validate(&idea); err != nil {
		return nil, err
	}
	idea.Label = strings.TrimSpace(idea.Label)
	idea.Category = strings.TrimSpace(idea.Category)
	return s.resolver.Resolve(ctx, user, idea), nil
}

// RequestRegen queues regeneration jobs for explicit items or for stored
// ideas. Callers may only name their own ideas unless they are admins.
func (s *Service) RequestRegen(ctx context.Context, caller *domain.User, req RegenRequest) ([]giftimage.Ticket, error) {
	switch {
	case len(req.Items) > 0 && len(req.IdeaIDs) > 0:
		return nil, fmt.Errorf("%w: send either items or idea_ids", domain.ErrInvalidInput)
	case len(req.Items) == 0 && len(req.IdeaIDs) == 0:
		return nil, fmt.Errorf("%w: items or idea_ids is required", domain.ErrInvalidInput)
	}

	ideas := req.Items
	for _, raw := range req.IdeaIDs {
		id, err := domain.ParseID(domain.TableGiftIdea, raw)
		if err != nil {
			return nil, err
		}
		gi, err := s.gifts.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !caller.IsAdmin() && !domain.SameID(gi.Owner, caller.ID) {
			return nil, fmt.Errorf("%w: not your gift idea", domain.ErrForbidden)
		}
		ideas = append(ideas, giftimage.Idea{Label: gi.Label, Category: gi.Category, Attributes: gi.Attributes})
	}
	return s.regenerator.RequestMany(ctx, caller, ideas)
}

// RunBatch processes one regeneration batch now.
func (s *Service) RunBatch(ctx context.Context, in BatchInput) (*giftimage.Summary, error) {
	n := in.BatchSize
	if n == 0 {
		n = s.batchSize
	}
	return s.regenerator.ProcessBatch(ctx, n)
}

// Jobs lists regeneration jobs, queued ones by default.
func (s *Service) Jobs(ctx context.Context, q JobQuery) ([]*domain.RegenJob, error) {
	if q.Status == "" {
		q.Status = domain.JobQueued
	}
	if q.Limit <= 0 {
		q.Limit = defaultJobLimit
	}
	q.Limit = min(q.Limit, maxJobLimit)
	jobs, err := s.regenerator.Jobs(ctx, q.Status, q.Limit)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []*domain.RegenJob{}
	}
	return jobs, nil
}

// Rescore re-matches placeholder ideas against the library.
func (s *Service) Rescore(ctx context.Context, in RescoreInput) (int, error) {
	return s.regenerator.Rescore(ctx, in.Threshold)
}

// Search proxies an Unsplash photo search.
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]unsplash.Photo, error) {
	if s.unsplash == nil {
		return nil, fmt.Errorf("%w: unsplash is not configured", domain.ErrProviderUnavailable)
	}
	return s.unsplash.Search(ctx, q.Q, q.Page)
}

// Track reports an Unsplash photo download.
func (s *Service) Track(ctx context.Context, in TrackInput) error {
	if s.unsplash == nil {
		return fmt.Errorf("%w: unsplash is not configured", domain.ErrProviderUnavailable)
	}
	return s.unsplash.Track(ctx, in.DownloadLocation)
}
