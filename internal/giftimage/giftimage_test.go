package giftimage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pliiiz/pliiiz/internal/aigateway"
	"github.com/pliiiz/pliiiz/internal/cache"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/events"
	"github.com/pliiiz/pliiiz/internal/quota"
	"github.com/pliiiz/pliiiz/internal/script"
	"github.com/pliiiz/pliiiz/internal/storage"
	"github.com/pliiiz/pliiiz/internal/testutils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeGenerator struct {
	calls   atomic.Int32
	failing atomic.Bool
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt string) (*aigateway.Image, error) {
	f.calls.Add(1)
	if f.failing.Load() {
		return nil, fmt.Errorf("%w: down", domain.ErrProviderUnavailable)
	}
	return &aigateway.Image{Data: pngBytes, MIMEType: "image/png"}, nil
}

type fixture struct {
	resolver *Resolver
	library  *testutils.ImageLibrary
	gen      *fakeGenerator
	fs       afero.Fs
	repos    *testutils.Repos
}

func newFixture(t *testing.T, aiPerHour int) *fixture {
	t.Helper()
	repos := testutils.NewRepos()
	fs := afero.NewMemMapFs()
	scorer, err := script.NewScorer("")
	require.NoError(t, err)
	catalog, err := LoadCatalog("")
	require.NoError(t, err)
	gen := &fakeGenerator{}

	r := NewResolver(Deps{
		Library:   repos.Images,
		Cache:     cache.NewMemory(),
		Scorer:    scorer,
		Generator: gen,
		Bucket:    storage.NewBucket(storage.NewAferoStore(fs), repos.Files),
		Catalog:   catalog,
		Quota:     quota.PerHour(aiPerHour),
	})
	return &fixture{resolver: r, library: repos.Images, gen: gen, fs: fs, repos: repos}
}

func user() *surrealmodels.RecordID {
	return testutils.NewTestRecordID(domain.TableUser)
}

func member() *domain.User {
	return &domain.User{ID: user(), Role: domain.RoleUser}
}

func TestResolveExistingURL(t *testing.T) {
	f := newFixture(t, 10)
	for _, u := range []string{"https://shop.example/p.jpg", "/media/avatars/x.png"} {
		res := f.resolver.Resolve(context.Background(), user(), Idea{Label: "Mug", ExistingURL: u})
		assert.Equal(t, domain.ImageSourceExisting, res.Source)
		assert.Equal(t, u, res.URL)
	}
	assert.Zero(t, f.gen.calls.Load())
}

func TestResolveLibraryExact(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	_, err := f.library.Upsert(ctx, &domain.LibraryImage{
		Hash: "h1", Label: "Écharpe", NormalizedLabel: "echarpe", Category: "clothing", URL: "/media/lib/echarpe.png",
	})
	require.NoError(t, err)

	res := f.resolver.Resolve(ctx, user(), Idea{Label: "echarpe!", Category: "clothing", ExistingURL: "not a url"})
	assert.Equal(t, domain.ImageSourceLibraryExact, res.Source)
	assert.Equal(t, "/media/lib/echarpe.png", res.URL)
}

func TestResolveLibraryMatch(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	_, err := f.library.Upsert(ctx, &domain.LibraryImage{
		Hash: "h1", Label: "Pull", NormalizedLabel: "pull", Category: "clothing",
		Attributes: map[string]string{"color": "blue", "size": "m"}, URL: "/media/lib/pull.png",
	})
	require.NoError(t, err)
	_, err = f.library.Upsert(ctx, &domain.LibraryImage{
		Hash: "h2", Label: "Gilet", NormalizedLabel: "gilet", Category: "clothing",
		Attributes: map[string]string{"color": "red", "size": "m"}, URL: "/media/lib/gilet.png",
	})
	require.NoError(t, err)

	res := f.resolver.Resolve(ctx, user(), Idea{
		Label: "Pull col roulé", Category: "clothing",
		Attributes: map[string]string{"color": "Blue", "size": "M"},
	})
	assert.Equal(t, domain.ImageSourceLibraryMatch, res.Source)
	assert.Equal(t, "/media/lib/pull.png", res.URL)
	assert.GreaterOrEqual(t, res.Score, DefaultThreshold)
	assert.Zero(t, f.gen.calls.Load())
}

func TestResolveGeneratesAndCaches(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	idea := Idea{Label: "Théière en fonte", Category: "home"}

	res := f.resolver.Resolve(ctx, user(), idea)
	require.Equal(t, domain.ImageSourceAI, res.Source)
	assert.Equal(t, "/media/gifts/ai/"+idea.Hash()+".png", res.URL)

	stored, err := afero.ReadFile(f.fs, "gifts/ai/"+idea.Hash()+".png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	entry, err := f.library.FindByNormalizedLabel(ctx, "theiere en fonte")
	require.NoError(t, err)
	assert.Equal(t, res.URL, entry.URL)

	// The second resolution is served from the cache.
	again := f.resolver.Resolve(ctx, user(), idea)
	assert.Equal(t, res.URL, again.URL)
	assert.Equal(t, domain.ImageSourceAI, again.Source)
	assert.Equal(t, int32(1), f.gen.calls.Load())
}

func TestResolveFallsBackToPlaceholder(t *testing.T) {
	f := newFixture(t, 10)
	f.gen.failing.Store(true)

	res := f.resolver.Resolve(context.Background(), user(), Idea{Label: "Roman policier", Category: "books"})
	assert.Equal(t, domain.ImageSourcePlaceholder, res.Source)
	assert.Equal(t, "/static/placeholders/books.svg", res.URL)

	// Placeholders are not cached, so a recovered provider is used next time.
	f.gen.failing.Store(false)
	res = f.resolver.Resolve(context.Background(), user(), Idea{Label: "Roman policier", Category: "books"})
	assert.Equal(t, domain.ImageSourceAI, res.Source)
}

func TestResolveQuota(t *testing.T) {
	f := newFixture(t, 1)
	u := user()

	first := f.resolver.Resolve(context.Background(), u, Idea{Label: "Idée une"})
	assert.Equal(t, domain.ImageSourceAI, first.Source)

	second := f.resolver.Resolve(context.Background(), u, Idea{Label: "Idée deux"})
	assert.Equal(t, domain.ImageSourcePlaceholder, second.Source)
	assert.Equal(t, int32(1), f.gen.calls.Load())

	// Other users have their own budget.
	third := f.resolver.Resolve(context.Background(), user(), Idea{Label: "Idée trois"})
	assert.Equal(t, domain.ImageSourceAI, third.Source)
}

func TestPrompt(t *testing.T) {
	f := newFixture(t, 1)
	p := f.resolver.Prompt(Idea{Label: " Mug ", Category: "home", Attributes: map[string]string{"size": "L", "color": "vert"}})
	assert.Contains(t, p, "illustration of Mug,")
	assert.Contains(t, p, "Details: color: vert, size: L")
}

func TestIsUsableURL(t *testing.T) {
	assert.True(t, IsUsableURL("http://a.b/c.png"))
	assert.True(t, IsUsableURL("/media/x.png"))
	assert.False(t, IsUsableURL("/media/"))
	assert.False(t, IsUsableURL("ftp://a.b/c"))
	assert.False(t, IsUsableURL("javascript:alert(1)"))
	assert.False(t, IsUsableURL(""))
}

func newRegen(t *testing.T, maxAttempts int) (*Regenerator, *fixture, *testutils.RecordingPublisher) {
	return newRegenWithQuota(t, maxAttempts, 100)
}

func newRegenWithQuota(t *testing.T, maxAttempts, aiPerHour int) (*Regenerator, *fixture, *testutils.RecordingPublisher) {
	f := newFixture(t, aiPerHour)
	pub := &testutils.RecordingPublisher{}
	return NewRegenerator(f.repos.Jobs, f.repos.Gifts, f.resolver, pub, maxAttempts), f, pub
}

func TestRequestManyIsIdempotent(t *testing.T) {
	g, f, _ := newRegen(t, 3)
	ctx := context.Background()
	by := member()

	tickets, err := g.RequestMany(ctx, by, []Idea{
		{Label: "Mug", Category: "home"},
		{Label: "mug!", Category: "home"},
		{Label: "Livre", Category: "books"},
	})
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	assert.Equal(t, tickets[0], tickets[1])
	assert.NotEqual(t, tickets[0].JobID, tickets[2].JobID)
	assert.Equal(t, domain.JobQueued, tickets[0].Status)

	again, err := g.RequestMany(ctx, by, []Idea{{Label: "Mug", Category: "home"}})
	require.NoError(t, err)
	assert.Equal(t, tickets[0].JobID, again[0].JobID)

	queued, err := f.repos.Jobs.ListByStatus(ctx, domain.JobQueued, 0)
	require.NoError(t, err)
	assert.Len(t, queued, 2)

	_, err = g.RequestMany(ctx, by, []Idea{{Label: "  "}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestProcessBatchUpdatesIdeasAndPublishes(t *testing.T) {
	g, f, pub := newRegen(t, 3)
	ctx := context.Background()
	owner := member()

	idea := Idea{Label: "Plaid", Category: "home"}
	gift, err := f.repos.Gifts.Create(ctx, &domain.GiftIdea{
		Owner: owner.ID, Label: "Plaid", Category: "home", Visibility: domain.VisibilityPublic,
		ImageURL: "/static/placeholders/home.svg", ImageSource: domain.ImageSourcePlaceholder, IdeaHash: idea.Hash(),
	})
	require.NoError(t, err)

	_, err = g.RequestMany(ctx, owner, []Idea{idea})
	require.NoError(t, err)

	sum, err := g.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Claimed: 1, Done: 1}, sum)

	updated, err := f.repos.Gifts.FindByID(ctx, gift.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageSourceAI, updated.ImageSource)
	assert.Equal(t, "/media/gifts/ai/"+idea.Hash()+".png", updated.ImageURL)

	job, err := f.repos.Jobs.FindByHash(ctx, idea.Hash())
	require.NoError(t, err)
	assert.Equal(t, domain.JobDone, job.Status)
	assert.Equal(t, updated.ImageURL, job.ResultURL)

	ready := testutils.Decode(t, pub, events.GiftImageReady)
	require.Len(t, ready, 1)
	assert.Equal(t, owner.ID.String(), ready[0].Owner)
	assert.Equal(t, []string{gift.ID.String()}, ready[0].IdeaIDs)

	// A finished job is re-queued on request.
	tickets, err := g.RequestMany(ctx, owner, []Idea{idea})
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, tickets[0].Status)
}

func TestProcessBatchKeepsImagesChosenByOwner(t *testing.T) {
	g, f, _ := newRegen(t, 3)
	ctx := context.Background()
	idea := Idea{Label: "Plaid", Category: "home"}

	picked, err := f.repos.Gifts.Create(ctx, &domain.GiftIdea{
		Owner: user(), Label: "Plaid", Category: "home", Visibility: domain.VisibilityPublic,
		ImageURL: "https://images.unsplash.com/photo-1", ImageSource: domain.ImageSourceUnsplash, IdeaHash: idea.Hash(),
	})
	require.NoError(t, err)
	own, err := f.repos.Gifts.Create(ctx, &domain.GiftIdea{
		Owner: user(), Label: "Plaid", Category: "home", Visibility: domain.VisibilityPublic,
		ImageURL: "https://shop.example/plaid.jpg", ImageSource: domain.ImageSourceExisting, IdeaHash: idea.Hash(),
	})
	require.NoError(t, err)
	placeholder, err := f.repos.Gifts.Create(ctx, &domain.GiftIdea{
		Owner: user(), Label: "Plaid", Category: "home", Visibility: domain.VisibilityPublic,
		ImageURL: "/static/placeholders/home.svg", ImageSource: domain.ImageSourcePlaceholder, IdeaHash: idea.Hash(),
	})
	require.NoError(t, err)

	_, err = g.RequestMany(ctx, member(), []Idea{idea})
	require.NoError(t, err)
	_, err = g.ProcessBatch(ctx, 10)
	require.NoError(t, err)

	got, err := f.repos.Gifts.FindByID(ctx, picked.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageSourceUnsplash, got.ImageSource)
	assert.Equal(t, "https://images.unsplash.com/photo-1", got.ImageURL)

	got, err = f.repos.Gifts.FindByID(ctx, own.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageSourceExisting, got.ImageSource)
	assert.Equal(t, "https://shop.example/plaid.jpg", got.ImageURL)

	got, err = f.repos.Gifts.FindByID(ctx, placeholder.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageSourceAI, got.ImageSource)
}

func TestRequestManyChargesQuota(t *testing.T) {
	g, f, _ := newRegenWithQuota(t, 3, 1)
	ctx := context.Background()
	by := member()

	var ideas []Idea
	for i := range 100 {
		ideas = append(ideas, Idea{Label: fmt.Sprintf("idée %d", i)})
	}
	_, err := g.RequestMany(ctx, by, ideas)
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))

	queued, err := f.repos.Jobs.ListByStatus(ctx, domain.JobQueued, 0)
	require.NoError(t, err)
	assert.Len(t, queued, 1)

	// Asking again for an active job costs nothing.
	tickets, err := g.RequestMany(ctx, by, ideas[:1])
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, tickets[0].Status)

	sum, err := g.ProcessBatch(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Done)
	assert.Equal(t, int32(1), f.gen.calls.Load())

	// Re-queueing a finished job is charged.
	_, err = g.RequestMany(ctx, by, ideas[:1])
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))

	admin := &domain.User{ID: user(), Role: domain.RoleAdmin}
	_, err = g.RequestMany(ctx, admin, ideas)
	require.NoError(t, err)
	queued, err = f.repos.Jobs.ListByStatus(ctx, domain.JobQueued, 0)
	require.NoError(t, err)
	assert.Len(t, queued, 100)
}

func TestProcessBatchRetriesThenFails(t *testing.T) {
	g, f, _ := newRegen(t, 2)
	ctx := context.Background()
	f.gen.failing.Store(true)

	_, err := g.RequestMany(ctx, member(), []Idea{{Label: "Vélo"}})
	require.NoError(t, err)

	sum, err := g.ProcessBatch(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Requeued)

	sum, err = g.ProcessBatch(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	job, err := f.repos.Jobs.FindByHash(ctx, Hash("Vélo", "", nil))
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, 2, job.Attempts)
	assert.Contains(t, job.LastError, "down")

	sum, err = g.ProcessBatch(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, sum.Claimed)
}

func TestConcurrentBatchesNeverShareJobs(t *testing.T) {
	g, f, _ := newRegen(t, 3)
	ctx := context.Background()

	var ideas []Idea
	for i := range 20 {
		ideas = append(ideas, Idea{Label: fmt.Sprintf("idée %d", i)})
	}
	_, err := g.RequestMany(ctx, member(), ideas)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var done atomic.Int32
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := g.ProcessBatch(ctx, 20)
			assert.NoError(t, err)
			done.Add(int32(sum.Done))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), done.Load())
	assert.Equal(t, int32(20), f.gen.calls.Load())
}

func TestRescore(t *testing.T) {
	g, f, _ := newRegen(t, 3)
	ctx := context.Background()
	owner := user()

	_, err := f.library.Upsert(ctx, &domain.LibraryImage{
		Hash: "lib", Label: "Pull", NormalizedLabel: "pull", Category: "clothing",
		Attributes: map[string]string{"color": "blue"}, URL: "/media/lib/pull.png",
	})
	require.NoError(t, err)

	matching, err := f.repos.Gifts.Create(ctx, &domain.GiftIdea{
		Owner: owner, Label: "Pull marin", Category: "clothing", Attributes: map[string]string{"color": "blue"},
		Visibility: domain.VisibilityPublic, ImageSource: domain.ImageSourcePlaceholder,
	})
	require.NoError(t, err)
	_, err = f.repos.Gifts.Create(ctx, &domain.GiftIdea{
		Owner: owner, Label: "Pull marin", Category: "clothing", Attributes: map[string]string{"color": "green"},
		Visibility: domain.VisibilityPublic, ImageSource: domain.ImageSourcePlaceholder,
	})
	require.NoError(t, err)

	n, err := g.Rescore(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.repos.Gifts.FindByID(ctx, matching.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageSourceLibraryMatch, got.ImageSource)
	assert.Equal(t, "/media/lib/pull.png", got.ImageURL)

	_, err = g.Rescore(ctx, 1.5)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
