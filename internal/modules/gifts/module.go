package gifts

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/registry"
)

// Module wires the gifts feature.
type Module struct {
	module.BaseModule
	deps    Deps
	service *Service
}

// New creates the gifts module. A nil Publisher is taken from the registry.
func New(deps Deps) *Module {
	return &Module{deps: deps}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "gifts"
}

func (m *Module) Register(reg *registry.Registry) error {
	if m.deps.Publisher == nil {
		m.deps.Publisher = registry.MustGet(reg, registry.PublisherKey)
	}
	m.service = NewService(m.deps)
	return nil
}

// Boot mounts /app/gifts.
func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	h := NewHandler(m.service)
	gifts := g.Group("/app/gifts", registry.MustGet(reg, registry.AuthKey))
	gifts.GET("", h.List)
	gifts.POST("", h.Create)
	gifts.PATCH("/:id", h.Update)
	gifts.DELETE("/:id", h.Delete)
	gifts.POST("/:id/regift", h.Regift)
	gifts.PUT("/:id/image", h.SetImage)
	gifts.POST("/:id/offer", h.Offer)
	gifts.DELETE("/:id/offer", h.Unoffer)
	return nil
}
