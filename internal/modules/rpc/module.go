package rpc

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/registry"
)

// Module owns the RPC gateway.
type Module struct {
	module.BaseModule
	router *Router
}

// New creates the gateway module.
func New() *Module {
	return &Module{router: NewRouter()}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rpc"
}

// Register publishes the router so other modules can add procedures.
func (m *Module) Register(reg *registry.Registry) error {
	registry.Set(reg, RouterKey, m.router)
	return nil
}

// Boot mounts POST /rpc/:name behind authentication.
func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	auth := registry.MustGet(reg, registry.AuthKey)
	g.POST("/rpc/:name", m.router.Serve, auth)
	slog.Info("RPC gateway mounted", "path", "/rpc/:name")
	return nil
}
