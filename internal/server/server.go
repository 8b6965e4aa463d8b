package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pliiiz/pliiiz/internal/auth"
	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/metrics"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/registry"
	"github.com/pliiiz/pliiiz/internal/storage"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds everything the HTTP layer needs besides the modules.
type Dependencies struct {
	Config config.Provider
	// Echo is created when nil.
	Echo   *echo.Echo
	Users  domain.UserRepository
	Tokens *auth.Tokens
	Bucket *storage.Bucket
	// DB is optional; without it /health only reports the process is up.
	DB Pinger
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	E       *echo.Echo
	Cfg     config.Provider
	users   domain.UserRepository
	tokens  *auth.Tokens
	bucket  *storage.Bucket
	db      Pinger
	modules module.Set
	reg     *registry.Registry
}

// New creates a new Server instance with the global middleware installed.
func New(deps Dependencies) (*Server, error) {
	if deps.Config == nil || deps.Users == nil || deps.Tokens == nil {
		return nil, errors.New("server: config, users and tokens are required")
	}
	e := deps.Echo
	if e == nil {
		e = echo.New()
	}
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()

	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{deps.Config.GetAppBaseURL()},
		AllowCredentials: true,
	}))
	setupErrorHandling(e)

	return &Server{
		E:      e,
		Cfg:    deps.Config,
		users:  deps.Users,
		tokens: deps.Tokens,
		bucket: deps.Bucket,
		db:     deps.DB,
	}, nil
}

// setupErrorHandling renders every error through handlers.ErrorHandler and
// logs a stack trace for errors that are neither HTTP nor domain errors.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if !errors.As(err, &he) && handlers.HTTPError(err).Code == http.StatusInternalServerError {
			middleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
				"error", err,
				"path", c.Request().URL.Path,
				"stack_trace", string(debug.Stack()),
			)
		}
		handlers.ErrorHandler(err, c)
	}
}

// Registry returns the registry the modules were booted with.
func (s *Server) Registry() *registry.Registry {
	return s.reg
}

func logStart(addr string) {
	slog.Info("HTTP server listening", "addr", addr)
}
