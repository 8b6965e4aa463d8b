package images

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/modules/rpc"
	"github.com/pliiiz/pliiiz/internal/registry"
)

// Module wires the image functions, the regeneration RPC and the worker
// schedule.
type Module struct {
	module.BaseModule
	service  *Service
	schedule string
}

// New creates the images module. An empty schedule leaves the worker to
// the admin batch endpoint.
func New(deps Deps, schedule string) *Module {
	return &Module{service: NewService(deps), schedule: schedule}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "images"
}

// Boot mounts the routes and schedules ProcessBatch.
func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	h := NewHandler(m.service)
	auth := registry.MustGet(reg, registry.AuthKey)

	g.POST("/functions/images/generate", h.Generate, auth)
	g.GET("/functions/unsplash/search", h.Search, auth)
	g.POST("/functions/unsplash/track", h.Track, auth)

	admin := g.Group("/admin/images", auth, middleware.RequireAdmin)
	admin.POST("/regen", h.RunBatch)
	admin.GET("/jobs", h.Jobs)
	admin.POST("/rescore", h.Rescore)

	registry.MustGet(reg, rpc.RouterKey).Handle("request_gift_image_regen_resolve_many", h.requestRegen)

	if m.schedule != "" {
		sched := registry.MustGet(reg, registry.SchedulerKey)
		if _, err := m.service.regenerator.Schedule(sched, m.schedule, m.service.batchSize); err != nil {
			return err
		}
		slog.Info("Image regeneration scheduled", "schedule", m.schedule, "batch_size", m.service.batchSize)
	}
	return nil
}
