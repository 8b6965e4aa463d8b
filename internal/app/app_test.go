package app

import (
	"context"
	"testing"
	"time"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/registry"
	"github.com/pliiiz/pliiiz/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDependencies(t *testing.T) *Dependencies {
	t.Helper()
	repos := testutils.NewRepos()
	cfg := &config.Config{
		AppBaseURL:       "https://pliiiz.test",
		SessionSecret:    "a-very-secret-key-for-testing-!",
		AuthTokenSecret:  "app-secret",
		AuthTokenTTL:     time.Hour,
		EmailProvider:    "log",
		PushProvider:     "log",
		AIQuotaPerHour:   2,
		PlacesProvider:   "nominatim",
		NominatimURL:     "http://127.0.0.1:1",
		StorageRoot:      t.TempDir(),
		RegenBatchSize:   3,
		RegenMaxAttempts: 2,
	}
	d, err := NewWithRepositories(context.Background(), cfg, Repositories{
		Users:         repos.Users,
		Profiles:      repos.Profiles,
		Preferences:   repos.Preferences,
		Contacts:      repos.Contacts,
		Notifications: repos.Notifications,
		Devices:       repos.Devices,
		Gifts:         repos.Gifts,
		Images:        repos.Images,
		Jobs:          repos.Jobs,
		Files:         repos.Files,
	})
	require.NoError(t, err)
	return d
}

func TestNewWithRepositoriesBuildsServices(t *testing.T) {
	d := newTestDependencies(t)

	assert.NotNil(t, d.Tokens)
	assert.NotNil(t, d.Resolver)
	assert.NotNil(t, d.Regenerator)
	assert.NotNil(t, d.Bucket)
	assert.Nil(t, d.Conn)
	// quota cleanup
	assert.Len(t, d.Scheduler.Entries(), 1)

	reg := d.NewRegistry()
	for _, key := range []string{
		string(registry.PublisherKey),
		string(registry.SubscriberKey),
		string(registry.SchedulerKey),
		string(registry.AuthKey),
	} {
		assert.Contains(t, reg.Keys(), key)
	}

	require.NoError(t, d.Close(context.Background()))
}

func TestNewModulesHaveUniqueNames(t *testing.T) {
	d := newTestDependencies(t)
	t.Cleanup(func() { _ = d.Close(context.Background()) })

	seen := map[string]bool{}
	for _, m := range NewModules(d) {
		assert.False(t, seen[m.Name()], "duplicate module %s", m.Name())
		seen[m.Name()] = true
	}
	for _, name := range []string{"rpc", "profile", "preferences", "contacts", "notifications", "gifts", "images", "places", "uistate", "share"} {
		assert.True(t, seen[name], "missing module %s", name)
	}
}
