package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pliiiz/pliiiz/internal/aigateway"
	"github.com/pliiiz/pliiiz/internal/auth"
	"github.com/pliiiz/pliiiz/internal/cache"
	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/database"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/email"
	"github.com/pliiiz/pliiiz/internal/geo"
	"github.com/pliiiz/pliiiz/internal/giftimage"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/pubsub"
	"github.com/pliiiz/pliiiz/internal/push"
	"github.com/pliiiz/pliiiz/internal/quota"
	"github.com/pliiiz/pliiiz/internal/registry"
	"github.com/pliiiz/pliiiz/internal/script"
	"github.com/pliiiz/pliiiz/internal/storage"
	"github.com/pliiiz/pliiiz/internal/unsplash"
	"github.com/robfig/cron/v3"
)

// Repositories are the persistence ports the modules depend on.
type Repositories struct {
	Users         domain.UserRepository
	Profiles      domain.ProfileRepository
	Preferences   domain.PreferenceRepository
	Contacts      domain.ContactRepository
	Notifications domain.NotificationRepository
	Devices       domain.PushDeviceRepository
	Gifts         domain.GiftRepository
	Images        domain.ImageLibrary
	Jobs          domain.RegenJobRepository
	Files         domain.FileRepository
}

// FromStores exposes the SurrealDB stores as Repositories.
func FromStores(s *database.Stores) Repositories {
	return Repositories{
		Users:         s.Users,
		Profiles:      s.Profiles,
		Preferences:   s.Preferences,
		Contacts:      s.Contacts,
		Notifications: s.Notifications,
		Devices:       s.Devices,
		Gifts:         s.Gifts,
		Images:        s.Images,
		Jobs:          s.Jobs,
		Files:         s.Files,
	}
}

// Dependencies holds the core services that are required by the application's modules.
// It is built once by the entrypoint and closed on shutdown.
type Dependencies struct {
	Config config.Provider
	Repos  Repositories
	// Conn is nil when the repositories do not come from SurrealDB.
	Conn *database.Connection

	Bus       *pubsub.WatermillBridge
	Scheduler *cron.Cron
	Tokens    *auth.Tokens

	Email     domain.EmailSender
	Push      push.Sender
	Generator aigateway.Generator
	Unsplash  *unsplash.Client
	Places    geo.Provider
	Cache     cache.Cache
	Bucket    *storage.Bucket
	Quota     *quota.Limiter

	Resolver    *giftimage.Resolver
	Regenerator *giftimage.Regenerator

	stopTracing func()
}

// New connects to SurrealDB, applies the schema and builds every service.
func New(ctx context.Context, cfg config.Provider) (*Dependencies, error) {
	conn := database.NewConnection(cfg)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	conn.StartMonitoring()

	if err := database.ApplySchema(ctx, conn); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	stores, err := database.NewStores(conn, cfg)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("create stores: %w", err)
	}

	d, err := NewWithRepositories(ctx, cfg, FromStores(stores))
	if err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	d.Conn = conn
	return d, nil
}

// NewWithRepositories builds every service on top of repos.
func NewWithRepositories(ctx context.Context, cfg config.Provider, repos Repositories) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Repos: repos}

	tokens, err := auth.NewTokens(cfg.GetAuthTokenSecret(), cfg.GetAuthTokenTTL())
	if err != nil {
		return nil, err
	}
	d.Tokens = tokens

	tracer, stop, err := pubsub.SetupOTel(ctx, pubsub.LoadTracingConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	d.stopTracing = stop
	d.Bus = pubsub.NewWatermillBridge(tracer)
	d.Scheduler = cron.New()

	if d.Email, err = email.NewEmailService(cfg); err != nil {
		return nil, fmt.Errorf("email service: %w", err)
	}
	d.Push = push.New(cfg)
	d.Generator = aigateway.New(cfg)
	d.Unsplash = unsplash.New("", cfg.GetUnsplashAccessKey())
	d.Places = geo.New(cfg)
	d.Cache = cache.New(ctx, cfg)
	d.Quota = quota.PerHour(cfg.GetAIQuotaPerHour())
	if _, err := d.Scheduler.AddFunc("@hourly", func() {
		if n := d.Quota.Cleanup(2 * time.Hour); n > 0 {
			slog.Debug("Idle quota buckets dropped", "event", "quota_cleanup", "count", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule quota cleanup: %w", err)
	}

	store, err := storage.NewLocalStore(cfg.GetStorageRoot())
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	d.Bucket = storage.NewBucket(store, repos.Files)

	catalog, err := giftimage.LoadCatalog(cfg.GetCatalogPath())
	if err != nil {
		return nil, err
	}
	scorer, err := script.NewScorer(cfg.GetScoringScriptPath())
	if err != nil {
		return nil, err
	}
	if err := scorer.Watch(ctx); err != nil {
		slog.Warn("Scoring script hot reload disabled", "error", err)
	}
	d.Resolver = giftimage.NewResolver(giftimage.Deps{
		Library:   repos.Images,
		Cache:     d.Cache,
		Scorer:    scorer,
		Generator: d.Generator,
		Bucket:    d.Bucket,
		Catalog:   catalog,
		Quota:     d.Quota,
		Threshold: cfg.GetImageMatchThreshold(),
	})
	d.Regenerator = giftimage.NewRegenerator(repos.Jobs, repos.Gifts, d.Resolver, d.Bus, cfg.GetRegenMaxAttempts())
	return d, nil
}

// NewRegistry returns a registry holding the core services modules look up
// during Register and Boot.
func (d *Dependencies) NewRegistry() *registry.Registry {
	reg := registry.New(d.Config)
	registry.Set(reg, registry.PublisherKey, pubsub.Publisher(d.Bus))
	registry.Set(reg, registry.SubscriberKey, pubsub.Subscriber(d.Bus))
	registry.Set(reg, registry.SchedulerKey, d.Scheduler)
	registry.Set(reg, registry.AuthKey, middleware.Auth(d.Tokens, d.Repos.Users))
	return reg
}

// Close stops the scheduler, then closes the bus, the cache and finally the
// database.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error

	stopped := d.Scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		slog.Warn("Scheduled jobs still running at shutdown")
	}

	if err := d.Bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pubsub: %w", err))
	}
	if err := d.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	if d.stopTracing != nil {
		d.stopTracing()
	}
	if d.Conn != nil {
		if err := d.Conn.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
