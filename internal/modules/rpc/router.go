// Package rpc exposes named remote procedures at POST /rpc/:name. Feature
// modules register their procedures on the shared Router during Boot.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/registry"
)

// RouterKey is the registry key of the shared Router.
const RouterKey registry.Key[*Router] = "rpc.router"

const maxParamsBytes = 1 << 20

// Procedure runs a call on behalf of caller. params is the raw JSON body,
// "{}" when the request had none.
type Procedure func(ctx context.Context, caller *domain.User, params json.RawMessage) (any, error)

type entry struct {
	fn    Procedure
	admin bool
}

// Router maps procedure names to their implementation.
type Router struct {
	mu    sync.RWMutex
	procs map[string]entry
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{procs: make(map[string]entry)}
}

// Handle registers a procedure open to every authenticated user.
func (r *Router) Handle(name string, fn Procedure) {
	r.register(name, entry{fn: fn})
}

// HandleAdmin registers a procedure restricted to admins.
func (r *Router) HandleAdmin(name string, fn Procedure) {
	r.register(name, entry{fn: fn, admin: true})
}

func (r *Router) register(name string, e entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.procs[name]; dup {
		panic(fmt.Sprintf("rpc: procedure %q registered twice", name))
	}
	r.procs[name] = e
}

// Names returns the registered procedure names, sorted.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call dispatches name. Unknown names are domain.ErrNotFound; admin
// procedures called by anyone else are domain.ErrForbidden.
func (r *Router) Call(ctx context.Context, caller *domain.User, name string, params json.RawMessage) (any, error) {
	r.mu.RLock()
	e, ok := r.procs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown procedure %q", domain.ErrNotFound, name)
	}
	if e.admin && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: %s requires the admin role", domain.ErrForbidden, name)
	}
	if len(bytes.TrimSpace(params)) == 0 {
		params = json.RawMessage("{}")
	}
	return e.fn(ctx, caller, params)
}

// Serve is the echo handler for POST /rpc/:name.
func (r *Router) Serve(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxParamsBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read request body")
	}
	if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
		return echo.NewHTTPError(http.StatusBadRequest, "params must be a JSON object")
	}

	result, err := r.Call(ctx, middleware.CurrentUser(c), name, body)
	if err != nil {
		middleware.FromContext(ctx).Debug("RPC failed", "procedure", name, "error", err)
		return handlers.HTTPError(err)
	}
	if result == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, result)
}

// Decode unmarshals params into T, which must be a struct, and validates it.
func Decode[T any](params json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(params, &v); err != nil {
		return v, fmt.Errorf("%w: malformed params", domain.ErrInvalidInput)
	}
	if err := domain.Validate(&v); err != nil {
		return v, err
	}
	return v, nil
}
