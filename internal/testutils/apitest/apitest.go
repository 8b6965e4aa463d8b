// Package apitest boots modules on an in-process echo server for handler
// tests.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/modules/rpc"
	"github.com/pliiiz/pliiiz/internal/registry"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
)

// UserHeader carries the caller's user id in tests.
const UserHeader = "X-Test-User"

// Auth authenticates requests from UserHeader instead of a token.
func Auth(users domain.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(UserHeader)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			id, err := domain.ParseID(domain.TableUser, raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "bad test user")
			}
			user, err := users.FindByID(c.Request().Context(), id)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			c.Set(middleware.UserContextKey, user)
			return next(c)
		}
	}
}

// Server is a booted echo instance.
type Server struct {
	E        *echo.Echo
	Registry *registry.Registry
	Cron     *cron.Cron
}

// Boot registers and boots mods, plus the RPC gateway, the way the real
// server does.
func Boot(t *testing.T, users domain.UserRepository, mods ...module.Module) *Server {
	t.Helper()
	e := echo.New()
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler

	reg := registry.New(nil)
	c := cron.New()
	registry.Set(reg, registry.AuthKey, Auth(users))
	registry.Set(reg, registry.SchedulerKey, c)

	all := append([]module.Module{rpc.New()}, mods...)
	for _, m := range all {
		require.NoError(t, m.Register(reg), "register %s", m.Name())
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	root := e.Group("")
	for _, m := range all {
		require.NoError(t, m.Boot(ctx, root, reg), "boot %s", m.Name())
	}
	t.Cleanup(func() {
		for i := len(all) - 1; i >= 0; i-- {
			_ = all[i].Shutdown(context.Background())
		}
	})
	return &Server{E: e, Registry: reg, Cron: c}
}

// Do sends a request as user (nil for anonymous). body may be nil, a
// string sent verbatim, or a value encoded as JSON.
func (s *Server) Do(t *testing.T, method, path string, body any, user *domain.User) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != nil {
		req.Header.Set(UserHeader, domain.IDString(user.ID))
	}
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	return rec
}

// Serve sends a prepared request.
func (s *Server) Serve(req *http.Request, user *domain.User) *httptest.ResponseRecorder {
	if user != nil {
		req.Header.Set(UserHeader, domain.IDString(user.ID))
	}
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a JSON response body.
func Decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// NewUser creates an account in users.
func NewUser(t *testing.T, users domain.UserRepository, email string) *domain.User {
	t.Helper()
	u, err := users.Create(context.Background(), email, "password123")
	require.NoError(t, err)
	return u
}
