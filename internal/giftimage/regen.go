package giftimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/events"
	"github.com/pliiiz/pliiiz/internal/metrics"
	"github.com/pliiiz/pliiiz/internal/pubsub"
	"github.com/pliiiz/pliiiz/internal/textnorm"
	"github.com/robfig/cron/v3"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Ticket reports the job backing one requested idea.
type Ticket struct {
	Hash   string           `json:"hash"`
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

// Summary describes one ProcessBatch run.
type Summary struct {
	Claimed  int `json:"claimed"`
	Done     int `json:"done"`
	Requeued int `json:"requeued"`
	Failed   int `json:"failed"`
	// Skipped counts queued jobs another worker claimed first.
	Skipped int `json:"skipped"`
}

// Regenerator queues and processes image regeneration jobs.
type Regenerator struct {
	jobs        domain.RegenJobRepository
	gifts       domain.GiftRepository
	resolver    *Resolver
	publisher   pubsub.Publisher
	maxAttempts int
}

// NewRegenerator creates a Regenerator.
func NewRegenerator(jobs domain.RegenJobRepository, gifts domain.GiftRepository, resolver *Resolver, publisher pubsub.Publisher, maxAttempts int) *Regenerator {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Regenerator{
		jobs:        jobs,
		gifts:       gifts,
		resolver:    resolver,
		publisher:   publisher,
		maxAttempts: maxAttempts,
	}
}

// RequestMany upserts one job per distinct idea hash. Active jobs are
// returned unchanged and finished ones go back to the queue. Every job
// created or re-queued for a non-admin costs one unit of their AI quota;
// once it runs out the call stops with ErrQuotaExceeded.
func (g *Regenerator) RequestMany(ctx context.Context, by *domain.User, ideas []Idea) ([]Ticket, error) {
	tickets := make([]Ticket, 0, len(ideas))
	seen := make(map[string]int, len(ideas))

	for _, idea := range ideas {
		if textnorm.Normalize(idea.Label) == "" {
			return nil, fmt.Errorf("%w: every item needs a label", domain.ErrInvalidInput)
		}
		hash := idea.Hash()
		if i, ok := seen[hash]; ok {
			tickets = append(tickets, tickets[i])
			continue
		}

		job, err := g.upsertJob(ctx, by, idea, hash)
		if err != nil {
			return nil, err
		}
		seen[hash] = len(tickets)
		tickets = append(tickets, Ticket{Hash: hash, JobID: domain.IDString(job.ID), Status: job.Status})
	}
	return tickets, nil
}

func (g *Regenerator) upsertJob(ctx context.Context, by *domain.User, idea Idea, hash string) (*domain.RegenJob, error) {
	job, err := g.jobs.FindByHash(ctx, hash)
	switch {
	case err == nil:
		if job.Status.Active() {
			return job, nil
		}
		if err := g.charge(by); err != nil {
			return nil, err
		}
		return g.jobs.Requeue(ctx, job.ID)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	if err := g.charge(by); err != nil {
		return nil, err
	}
	var requestedBy *surrealmodels.RecordID
	if by != nil {
		requestedBy = by.ID
	}

	job, err = g.jobs.Create(ctx, &domain.RegenJob{
		Hash:        hash,
		Label:       idea.Label,
		Category:    idea.Category,
		Attributes:  idea.Attributes,
		RequestedBy: requestedBy,
	})
	if errors.Is(err, domain.ErrConflict) {
		// Lost a race with a concurrent request for the same hash.
		return g.jobs.FindByHash(ctx, hash)
	}
	return job, err
}

func (g *Regenerator) charge(by *domain.User) error {
	if by.IsAdmin() {
		return nil
	}
	var key *surrealmodels.RecordID
	if by != nil {
		key = by.ID
	}
	if !g.resolver.allowAI(key) {
		return fmt.Errorf("%w: AI image quota used up, try again later", domain.ErrQuotaExceeded)
	}
	return nil
}

// Jobs lists jobs in the given status, oldest first.
func (g *Regenerator) Jobs(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.RegenJob, error) {
	return g.jobs.ListByStatus(ctx, status, limit)
}

// ProcessBatch claims up to n queued jobs and regenerates their images.
func (g *Regenerator) ProcessBatch(ctx context.Context, n int) (*Summary, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive", domain.ErrInvalidInput)
	}
	queued, err := g.jobs.ListByStatus(ctx, domain.JobQueued, n)
	if err != nil {
		return nil, fmt.Errorf("list queued jobs: %w", err)
	}

	sum := &Summary{}
	for _, job := range queued {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		ok, err := g.jobs.Claim(ctx, job.ID)
		if err != nil {
			return sum, fmt.Errorf("claim %s: %w", domain.IDString(job.ID), err)
		}
		if !ok {
			sum.Skipped++
			continue
		}
		sum.Claimed++
		// Claim incremented attempts in the store.
		job.Attempts++

		outcome := g.process(ctx, job)
		metrics.RegenJobs.WithLabelValues(outcome).Inc()
		switch outcome {
		case "done":
			sum.Done++
		case "requeued":
			sum.Requeued++
		default:
			sum.Failed++
		}
	}

	if sum.Claimed > 0 {
		slog.InfoContext(ctx, "Regeneration batch finished",
			"event", "giftimage.regen",
			"claimed", sum.Claimed,
			"done", sum.Done,
			"requeued", sum.Requeued,
			"failed", sum.Failed,
		)
	}
	return sum, nil
}

func (g *Regenerator) process(ctx context.Context, job *domain.RegenJob) string {
	log := slog.With("event", "giftimage.regen", "job", domain.IDString(job.ID), "hash", job.Hash)
	idea := Idea{Label: job.Label, Category: job.Category, Attributes: job.Attributes}

	res, err := g.resolver.Generate(ctx, idea)
	if err != nil {
		requeue := job.Attempts < g.maxAttempts
		if ferr := g.jobs.Fail(ctx, job.ID, err.Error(), requeue); ferr != nil {
			log.ErrorContext(ctx, "Failed to record job failure", "error", ferr)
		}
		log.WarnContext(ctx, "Image regeneration failed", "attempts", job.Attempts, "requeue", requeue, "error", err)
		if requeue {
			return "requeued"
		}
		return "failed"
	}

	g.resolver.remember(ctx, res)
	updated, err := g.gifts.SetImageByHash(ctx, job.Hash, res.URL, domain.ImageSourceAI)
	if err != nil {
		log.ErrorContext(ctx, "Failed to apply regenerated image to gift ideas", "error", err)
	}
	if err := g.jobs.Complete(ctx, job.ID, res.URL); err != nil {
		log.ErrorContext(ctx, "Failed to complete job", "error", err)
	}

	g.announce(ctx, job, res, updated)
	return "done"
}

func (g *Regenerator) announce(ctx context.Context, job *domain.RegenJob, res *Resolution, ideas []*domain.GiftIdea) {
	if g.publisher == nil {
		return
	}
	byOwner := make(map[string][]string)
	var owners []string
	for _, idea := range ideas {
		owner := domain.IDString(idea.Owner)
		if _, ok := byOwner[owner]; !ok {
			owners = append(owners, owner)
		}
		byOwner[owner] = append(byOwner[owner], domain.IDString(idea.ID))
	}
	for _, owner := range owners {
		err := pubsub.Publish(ctx, g.publisher, events.GiftImageReady, owner, events.ImageReady{
			Owner:   owner,
			Hash:    job.Hash,
			URL:     res.URL,
			Label:   job.Label,
			IdeaIDs: byOwner[owner],
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to publish image ready event", "owner", owner, "error", err)
		}
	}
}

// Schedule registers ProcessBatch on the cron scheduler.
func (g *Regenerator) Schedule(c *cron.Cron, spec string, batchSize int) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if _, err := g.ProcessBatch(context.Background(), batchSize); err != nil {
			slog.Error("Scheduled regeneration batch failed", "event", "giftimage.regen", "error", err)
		}
	})
}
