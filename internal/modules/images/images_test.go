package images_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pliiiz/pliiiz/internal/cache"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/giftimage"
	"github.com/pliiiz/pliiiz/internal/modules/images"
	"github.com/pliiiz/pliiiz/internal/quota"
	"github.com/pliiiz/pliiiz/internal/script"
	"github.com/pliiiz/pliiiz/internal/storage"
	"github.com/pliiiz/pliiiz/internal/testutils"
	"github.com/pliiiz/pliiiz/internal/testutils/apitest"
	"github.com/pliiiz/pliiiz/internal/unsplash"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	srv   *apitest.Server
	repos *testutils.Repos
	gen   *testutils.Generator
	pub   *testutils.RecordingPublisher
}

func boot(t *testing.T, unsplashURL, schedule string) *env {
	t.Helper()
	repos := testutils.NewRepos()
	scorer, err := script.NewScorer("")
	require.NoError(t, err)
	catalog, err := giftimage.LoadCatalog("")
	require.NoError(t, err)
	gen := &testutils.Generator{}
	pub := &testutils.RecordingPublisher{}
	resolver := giftimage.NewResolver(giftimage.Deps{
		Library:   repos.Images,
		Cache:     cache.NewMemory(),
		Scorer:    scorer,
		Generator: gen,
		Bucket:    storage.NewBucket(storage.NewAferoStore(afero.NewMemMapFs()), repos.Files),
		Catalog:   catalog,
		Quota:     quota.PerHour(1),
	})
	deps := images.Deps{
		Resolver:    resolver,
		Regenerator: giftimage.NewRegenerator(repos.Jobs, repos.Gifts, resolver, pub, 3),
		Gifts:       repos.Gifts,
		BatchSize:   5,
	}
	if unsplashURL != "" {
		deps.Unsplash = unsplash.New(unsplashURL, "key")
	}
	srv := apitest.Boot(t, repos.Users, images.New(deps, schedule))
	return &env{srv: srv, repos: repos, gen: gen, pub: pub}
}

func TestGenerateUsesQuota(t *testing.T) {
	e := boot(t, "", "")
	u := apitest.NewUser(t, e.repos.Users, "u@example.com")

	rec := e.srv.Do(t, http.MethodPost, "/functions/images/generate", map[string]any{"label": "Bougie", "category": "home"}, u)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := apitest.Decode[giftimage.Resolution](t, rec)
	assert.Equal(t, domain.ImageSourceAI, res.Source)
	assert.Equal(t, giftimage.Hash("Bougie", "home", nil), res.Hash)

	// The hourly quota is spent, so a new idea falls back to a placeholder.
	rec = e.srv.Do(t, http.MethodPost, "/functions/images/generate", map[string]any{"label": "Carnet"}, u)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ImageSourcePlaceholder, apitest.Decode[giftimage.Resolution](t, rec).Source)
	assert.Equal(t, int32(1), e.gen.Calls.Load())

	assert.Equal(t, http.StatusBadRequest, e.srv.Do(t, http.MethodPost, "/functions/images/generate", map[string]any{}, u).Code)
	assert.Equal(t, http.StatusUnauthorized, e.srv.Do(t, http.MethodPost, "/functions/images/generate", map[string]any{"label": "x"}, nil).Code)
}

func TestRegenRPCAndAdminBatch(t *testing.T) {
	e := boot(t, "", "")
	ctx := context.Background()
	owner := apitest.NewUser(t, e.repos.Users, "owner@example.com")
	other := apitest.NewUser(t, e.repos.Users, "other@example.com")

	idea := giftimage.Idea{Label: "Plaid", Category: "home"}
	gift, err := e.repos.Gifts.Create(ctx, &domain.GiftIdea{
		Owner: owner.ID, Label: idea.Label, Category: idea.Category, Visibility: domain.VisibilityContacts,
		ImageURL: "/static/placeholders/home.svg", ImageSource: domain.ImageSourcePlaceholder, IdeaHash: idea.Hash(),
	})
	require.NoError(t, err)
	ideaID := domain.IDString(gift.ID)

	rec := e.srv.Do(t, http.MethodPost, "/rpc/request_gift_image_regen_resolve_many", map[string]any{"idea_ids": []string{ideaID}}, other)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.srv.Do(t, http.MethodPost, "/rpc/request_gift_image_regen_resolve_many", map[string]any{}, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.srv.Do(t, http.MethodPost, "/rpc/request_gift_image_regen_resolve_many", map[string]any{"idea_ids": []string{ideaID}}, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tickets := apitest.Decode[[]giftimage.Ticket](t, rec)
	require.Len(t, tickets, 1)
	assert.Equal(t, idea.Hash(), tickets[0].Hash)
	assert.Equal(t, domain.JobQueued, tickets[0].Status)

	// Asking again for the same hash returns the same job.
	rec = e.srv.Do(t, http.MethodPost, "/rpc/request_gift_image_regen_resolve_many",
		map[string]any{"items": []map[string]any{{"label": "Plaid", "category": "home"}}}, other)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tickets[0].JobID, apitest.Decode[[]giftimage.Ticket](t, rec)[0].JobID)

	// The owner's single hourly generation went into the first job.
	rec = e.srv.Do(t, http.MethodPost, "/rpc/request_gift_image_regen_resolve_many",
		map[string]any{"items": []map[string]any{{"label": "Carnet"}, {"label": "Bougie"}}}, owner)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	assert.Equal(t, http.StatusForbidden, e.srv.Do(t, http.MethodGet, "/admin/images/jobs", nil, owner).Code)
	e.repos.Users.MakeAdmin(owner.ID)

	rec = e.srv.Do(t, http.MethodGet, "/admin/images/jobs?status=queued", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, apitest.Decode[[]domain.RegenJob](t, rec), 1)
	assert.Equal(t, http.StatusBadRequest, e.srv.Do(t, http.MethodGet, "/admin/images/jobs?status=lost", nil, owner).Code)

	rec = e.srv.Do(t, http.MethodPost, "/admin/images/regen", map[string]any{}, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, giftimage.Summary{Claimed: 1, Done: 1}, apitest.Decode[giftimage.Summary](t, rec))

	updated, err := e.repos.Gifts.FindByID(ctx, gift.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageSourceAI, updated.ImageSource)

	rec = e.srv.Do(t, http.MethodGet, "/admin/images/jobs?status=done", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, apitest.Decode[[]domain.RegenJob](t, rec), 1)
}

func TestRescoreEndpoint(t *testing.T) {
	e := boot(t, "", "")
	ctx := context.Background()
	admin := apitest.NewUser(t, e.repos.Users, "admin@example.com")
	e.repos.Users.MakeAdmin(admin.ID)

	_, err := e.repos.Images.Upsert(ctx, &domain.LibraryImage{
		Hash: "lib", Label: "Pull", NormalizedLabel: "pull", Category: "clothing",
		Attributes: map[string]string{"color": "blue"}, URL: "/media/lib/pull.png",
	})
	require.NoError(t, err)
	_, err = e.repos.Gifts.Create(ctx, &domain.GiftIdea{
		Owner: admin.ID, Label: "Pull marin", Category: "clothing", Attributes: map[string]string{"color": "blue"},
		Visibility: domain.VisibilityPublic, ImageSource: domain.ImageSourcePlaceholder,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, e.srv.Do(t, http.MethodPost, "/admin/images/rescore", map[string]any{"threshold": 2}, admin).Code)
	rec := e.srv.Do(t, http.MethodPost, "/admin/images/rescore", map[string]any{"threshold": 0}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"updated": 1}, apitest.Decode[map[string]int](t, rec))
}

func TestUnsplashProxy(t *testing.T) {
	var upstream *httptest.Server
	tracked := make(chan string, 1)
	upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search/photos" {
			fmt.Fprintf(w, `{"results":[{"id":"p1","alt_description":"red mug","urls":{"thumb":"t","regular":"r"},
				"user":{"name":"Lea","links":{"html":"h"}},"links":{"download_location":"%s/photos/p1/download"}}]}`, upstream.URL)
			return
		}
		tracked <- r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	e := boot(t, upstream.URL, "")
	u := apitest.NewUser(t, e.repos.Users, "u@example.com")

	assert.Equal(t, http.StatusBadRequest, e.srv.Do(t, http.MethodGet, "/functions/unsplash/search", nil, u).Code)

	rec := e.srv.Do(t, http.MethodGet, "/functions/unsplash/search?q=mug", nil, u)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	photos := apitest.Decode[[]unsplash.Photo](t, rec)
	require.Len(t, photos, 1)
	assert.Equal(t, "red mug", photos[0].Description)

	rec = e.srv.Do(t, http.MethodPost, "/functions/unsplash/track", map[string]any{"download_location": photos[0].DownloadLocation}, u)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/photos/p1/download", <-tracked)

	rec = e.srv.Do(t, http.MethodPost, "/functions/unsplash/track", map[string]any{"download_location": "https://evil.example/x"}, u)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnsplashUnconfigured(t *testing.T) {
	e := boot(t, "", "")
	u := apitest.NewUser(t, e.repos.Users, "u@example.com")
	rec := e.srv.Do(t, http.MethodGet, "/functions/unsplash/search?q=mug", nil, u)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestScheduleRegistersWorker(t *testing.T) {
	e := boot(t, "", "@every 1m")
	assert.Len(t, e.srv.Cron.Entries(), 1)
}
