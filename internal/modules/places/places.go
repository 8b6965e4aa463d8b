// Package places proxies place search to the configured geocoding
// provider and caches the results.
package places

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/cache"
	"github.com/pliiiz/pliiiz/internal/geo"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/metrics"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/registry"
	"github.com/pliiiz/pliiiz/internal/textnorm"
)

const (
	// TTL is how long a search result is reused.
	TTL          = 24 * time.Hour
	defaultLimit = 5
	maxLimit     = 20
)

// Query is the query of GET /functions/places/search.
type Query struct {
	Q     string `query:"q" validate:"required,max=200"`
	Limit int    `query:"limit" validate:"gte=0,lte=20"`
}

// Service searches places with a cache in front of the provider.
type Service struct {
	provider geo.Provider
	cache    cache.Cache
}

// NewService creates a Service. A nil cache disables caching.
func NewService(p geo.Provider, c cache.Cache) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	return &Service{provider: p, cache: c}
}

func cacheKey(provider, q string, limit int) string {
	return "places:" + provider + ":" + strconv.Itoa(limit) + ":" + textnorm.Normalize(q)
}

// Search returns up to q.Limit places.
func (s *Service) Search(ctx context.Context, q Query) ([]geo.Place, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	q.Limit = min(q.Limit, maxLimit)
	key := cacheKey(s.provider.Name(), q.Q, q.Limit)

	var out []geo.Place
	if ok, err := cache.GetJSON(ctx, s.cache, key, &out); err != nil {
		slog.WarnContext(ctx, "Places cache read failed", "error", err)
	} else if ok {
		return out, nil
	}

	out, err := s.provider.Search(ctx, q.Q, q.Limit)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues(s.provider.Name()).Inc()
		return nil, err
	}
	if out == nil {
		out = []geo.Place{}
	}
	if err := cache.SetJSON(ctx, s.cache, key, out, TTL); err != nil {
		slog.WarnContext(ctx, "Places cache write failed", "error", err)
	}
	return out, nil
}

// Module mounts the places proxy.
type Module struct {
	module.BaseModule
	service *Service
}

// New creates the places module.
func New(p geo.Provider, c cache.Cache) *Module {
	return &Module{service: NewService(p, c)}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "places"
}

func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	g.GET("/functions/places/search", m.search, registry.MustGet(reg, registry.AuthKey))
	return nil
}

func (m *Module) search(c echo.Context) error {
	var q Query
	if err := handlers.BindAndValidate(c, &q); err != nil {
		return handlers.HTTPError(err)
	}
	out, err := m.service.Search(c.Request().Context(), q)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}
