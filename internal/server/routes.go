package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/metrics"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/modules/profile"
	"github.com/pliiiz/pliiiz/internal/registry"
	"github.com/pliiiz/pliiiz/web"
)

// RegisterRoutes sets up the core routes. It must run after InitModules,
// which provides the profile service used at sign-up.
func (s *Server) RegisterRoutes() {
	authHandler := handlers.NewAuthHandler(s.users, registry.MustGet(s.reg, profile.ServiceKey), s.tokens)
	rateLimiter := middleware.RateLimiter(10)

	authGroup := s.E.Group("/auth")
	authGroup.POST("/signup", authHandler.SignUp, rateLimiter)
	authGroup.POST("/signin", authHandler.SignIn, rateLimiter)
	authGroup.POST("/signout", authHandler.SignOut)

	if s.bucket != nil {
		s.E.GET("/media/*", s.bucket.Serve)
	}
	s.E.StaticFS("/static", echo.MustSubFS(web.FS, "static"))

	s.E.GET("/health", s.health)
	s.E.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

func (s *Server) health(c echo.Context) error {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			middleware.FromContext(ctx).Warn("Health check failed", "error", err)
			return c.String(http.StatusServiceUnavailable, "database unavailable")
		}
	}
	return c.String(http.StatusOK, "OK")
}
