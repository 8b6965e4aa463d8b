package contacts

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/modules/rpc"
	"github.com/pliiiz/pliiiz/internal/registry"
)

// Module wires the contacts feature.
type Module struct {
	module.BaseModule
	deps    Deps
	service *Service
}

// New creates the contacts module. The publisher is taken from the
// registry at Register time when deps.Publisher is nil.
func New(deps Deps) *Module {
	return &Module{deps: deps}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "contacts"
}

func (m *Module) Register(reg *registry.Registry) error {
	if m.deps.Publisher == nil {
		m.deps.Publisher = registry.MustGet(reg, registry.PublisherKey)
	}
	m.service = NewService(m.deps)
	return nil
}

// Boot mounts /app/contacts and the admin resync RPC.
func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	h := NewHandler(m.service)
	app := g.Group("/app/contacts", registry.MustGet(reg, registry.AuthKey))
	app.GET("", h.List)
	app.DELETE("/:userID", h.Remove)
	app.GET("/requests", h.ListRequests)
	app.POST("/requests", h.SendRequest)
	app.POST("/requests/:id/accept", h.respond(m.service.Accept))
	app.POST("/requests/:id/decline", h.respond(m.service.Decline))
	app.POST("/requests/:id/cancel", h.respond(m.service.Cancel))

	registry.MustGet(reg, rpc.RouterKey).HandleAdmin("resync_all_contacts", h.resync)
	return nil
}
