package preferences

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/registry"
)

// Module wires the preferences feature.
type Module struct {
	module.BaseModule
	service *Service
}

// New creates the preferences module.
func New(repo domain.PreferenceRepository) *Module {
	return &Module{service: NewService(repo)}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "preferences"
}

// Boot mounts /app/preferences.
func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	h := NewHandler(m.service)
	prefs := g.Group("/app/preferences", registry.MustGet(reg, registry.AuthKey))
	prefs.GET("", h.List)
	prefs.POST("", h.Create)
	prefs.PUT("/order", h.Reorder)
	prefs.PATCH("/:id", h.Update)
	prefs.DELETE("/:id", h.Delete)
	return nil
}
