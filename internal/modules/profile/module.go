package profile

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/modules/rpc"
	"github.com/pliiiz/pliiiz/internal/registry"
)

// Module wires the profile feature.
type Module struct {
	module.BaseModule
	service *Service
}

// New creates the profile module.
func New(deps Deps) *Module {
	return &Module{service: NewService(deps)}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "profile"
}

// Register shares the profile service with the auth handler and the share
// page.
func (m *Module) Register(reg *registry.Registry) error {
	registry.Set(reg, ServiceKey, m.service)
	return nil
}

// Boot mounts the routes and the profile RPCs.
func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	auth := registry.MustGet(reg, registry.AuthKey)
	h := NewHandler(m.service)

	app := g.Group("/app/profile", auth)
	app.GET("", h.Get)
	app.PATCH("", h.Update)
	app.POST("/avatar", h.UploadAvatar)

	g.POST("/functions/avatar/regenerate", h.RegenerateAvatar, auth)

	router := registry.MustGet(reg, rpc.RouterKey)
	router.Handle("get_user_id_by_slug", h.userIDBySlug)
	router.Handle("get_public_profile_secure", h.publicProfile)
	return nil
}
