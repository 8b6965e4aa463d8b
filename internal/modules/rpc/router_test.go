package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoParams struct {
	Word string `json:"word" validate:"required,max=10"`
}

func newRouter() *Router {
	r := NewRouter()
	r.Handle("echo", func(ctx context.Context, caller *domain.User, params json.RawMessage) (any, error) {
		p, err := Decode[echoParams](params)
		if err != nil {
			return nil, err
		}
		return map[string]string{"word": p.Word, "caller": caller.Email}, nil
	})
	r.HandleAdmin("wipe", func(ctx context.Context, caller *domain.User, params json.RawMessage) (any, error) {
		return nil, nil
	})
	return r
}

func serve(t *testing.T, r *Router, user *domain.User, name, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = handlers.ErrorHandler
	asUser := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.UserContextKey, user)
			return next(c)
		}
	}
	e.POST("/rpc/:name", r.Serve, asUser)

	req := httptest.NewRequest(http.MethodPost, "/rpc/"+name, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouterDispatch(t *testing.T) {
	r := newRouter()
	user := &domain.User{ID: testutils.NewTestRecordID(domain.TableUser), Email: "a@example.com", Role: domain.RoleUser}

	rec := serve(t, r, user, "echo", `{"word":"bonjour"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"word":"bonjour","caller":"a@example.com"}`, rec.Body.String())

	rec = serve(t, r, user, "echo", `{"word":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, r, user, "echo", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, r, user, "nope", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterAdminProcedures(t *testing.T) {
	r := newRouter()
	user := &domain.User{ID: testutils.NewTestRecordID(domain.TableUser), Role: domain.RoleUser}
	admin := &domain.User{ID: testutils.NewTestRecordID(domain.TableUser), Role: domain.RoleAdmin}

	assert.Equal(t, http.StatusForbidden, serve(t, r, user, "wipe", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(t, r, admin, "wipe", "").Code)
}

func TestRouterRejectsDuplicates(t *testing.T) {
	r := newRouter()
	assert.Equal(t, []string{"echo", "wipe"}, r.Names())
	assert.Panics(t, func() { r.Handle("echo", nil) })
}
