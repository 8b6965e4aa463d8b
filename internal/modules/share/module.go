// Package share renders the public profile page linked from shared URLs.
package share

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/modules/profile"
	"github.com/pliiiz/pliiiz/internal/registry"
	g "maragu.dev/gomponents"
)

// Module serves GET /u/:slug.
type Module struct {
	module.BaseModule
	baseURL  string
	profiles *profile.Service
}

// New creates the share module. baseURL prefixes canonical and app links.
func New(baseURL string) *Module {
	return &Module{baseURL: baseURL}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "share"
}

func (m *Module) Boot(ctx context.Context, grp *echo.Group, reg *registry.Registry) error {
	m.profiles = registry.MustGet(reg, profile.ServiceKey)
	grp.GET("/u/:slug", m.page)
	return nil
}

func (m *Module) page(c echo.Context) error {
	ctx := c.Request().Context()
	view, err := m.profiles.PublicProfile(ctx, nil, profile.Target{Slug: c.Param("slug")})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return render(c, http.StatusNotFound, NotFoundPage(m.baseURL))
	case err != nil:
		middleware.FromContext(ctx).Error("Failed to load shared profile", "slug", c.Param("slug"), "error", err)
		return handlers.HTTPError(err)
	case view.Profile.Visibility != domain.VisibilityPublic:
		return render(c, http.StatusNotFound, NotFoundPage(m.baseURL))
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=300")
	return render(c, http.StatusOK, ProfilePage(m.baseURL, view))
}

func render(c echo.Context, status int, node g.Node) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return node.Render(c.Response())
}
