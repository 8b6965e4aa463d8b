// Package uistate keeps small client UI flags in a signed session cookie:
// the last offered label, dismissed prompts and onboarding steps.
package uistate

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/registry"
)

const sessionName = "pliiiz-ui"

// State is what the client reads back.
type State struct {
	LastOfferLabel   string          `json:"last_offer_label"`
	DismissedPrompts []string        `json:"dismissed_prompts"`
	Onboarding       map[string]bool `json:"onboarding"`
}

// Patch is the body of PATCH /app/ui-state. Dismissed prompts and
// onboarding flags are merged into the current state.
type Patch struct {
	LastOfferLabel   *string         `json:"last_offer_label,omitempty" validate:"omitempty,max=160"`
	DismissedPrompts []string        `json:"dismissed_prompts,omitempty" validate:"max=50,dive,min=1,max=60"`
	Onboarding       map[string]bool `json:"onboarding,omitempty" validate:"max=20,dive,keys,min=1,max=60,endkeys"`
}

// Apply merges p into s.
func (s *State) Apply(p Patch) {
	if p.LastOfferLabel != nil {
		s.LastOfferLabel = *p.LastOfferLabel
	}
	for _, prompt := range p.DismissedPrompts {
		if !slices.Contains(s.DismissedPrompts, prompt) {
			s.DismissedPrompts = append(s.DismissedPrompts, prompt)
		}
	}
	if s.Onboarding == nil && len(p.Onboarding) > 0 {
		s.Onboarding = make(map[string]bool, len(p.Onboarding))
	}
	for step, done := range p.Onboarding {
		s.Onboarding[step] = done
	}
}

// Module serves /app/ui-state.
type Module struct {
	module.BaseModule
	store sessions.Store
}

// New creates the module on top of store.
func New(store sessions.Store) *Module {
	return &Module{store: store}
}

// NewCookieStore returns the cookie store the server uses for UI state.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 180,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Name returns the module name.
func (m *Module) Name() string {
	return "uistate"
}

func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	ui := g.Group("/app/ui-state", registry.MustGet(reg, registry.AuthKey), session.Middleware(m.store))
	ui.GET("", m.get)
	ui.PATCH("", m.patch)
	return nil
}

// The cookie is per browser, so each user's state lives under its own key.
func stateKey(user *domain.User) string {
	return "state:" + domain.IDString(user.ID)
}

func load(c echo.Context) (*sessions.Session, State, error) {
	st := State{DismissedPrompts: []string{}, Onboarding: map[string]bool{}}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		// A cookie signed with an old secret yields a fresh session.
		middleware.FromContext(c.Request().Context()).Debug("Discarding unreadable ui session", "error", err)
	}
	if sess == nil {
		return nil, st, err
	}
	raw, _ := sess.Values[stateKey(middleware.CurrentUser(c))].(string)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			middleware.FromContext(c.Request().Context()).Warn("Discarding malformed ui state", "error", err)
			st = State{}
		}
	}
	if st.DismissedPrompts == nil {
		st.DismissedPrompts = []string{}
	}
	if st.Onboarding == nil {
		st.Onboarding = map[string]bool{}
	}
	return sess, st, nil
}

func (m *Module) get(c echo.Context) error {
	_, st, _ := load(c)
	return c.JSON(http.StatusOK, st)
}

func (m *Module) patch(c echo.Context) error {
	var p Patch
	if err := handlers.BindAndValidate(c, &p); err != nil {
		return handlers.HTTPError(err)
	}
	sess, st, err := load(c)
	if sess == nil {
		return handlers.HTTPError(err)
	}
	st.Apply(p)

	raw, err := json.Marshal(st)
	if err != nil {
		return handlers.HTTPError(err)
	}
	sess.Values[stateKey(middleware.CurrentUser(c))] = string(raw)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}
