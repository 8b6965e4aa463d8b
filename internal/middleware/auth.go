package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/auth"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const UserContextKey = "user"

// Auth resolves the caller from an "Authorization: Bearer" header or the
// auth cookie and stores the *domain.User under UserContextKey. Tokens whose
// subject is not a user record are accepted only with the admin role; they
// are the service tokens minted by the CLI.
func Auth(tokens *auth.Tokens, users domain.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				clearAuthCookie(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			user, err := resolveUser(c, users, claims)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					clearAuthCookie(c)
					return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
				}
				FromContext(c.Request().Context()).Error("Failed to load authenticated user", "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "could not authenticate")
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

func resolveUser(c echo.Context, users domain.UserRepository, claims *auth.Claims) (*domain.User, error) {
	id, err := domain.ParseID(domain.TableUser, claims.Subject)
	if err != nil {
		if claims.Role != domain.RoleAdmin {
			return nil, domain.ErrNotFound
		}
		name, _ := strings.CutPrefix(claims.Subject, "service:")
		return &domain.User{ID: &surrealmodels.RecordID{Table: "service", ID: name}, Role: domain.RoleAdmin}, nil
	}
	return users.FindByID(c.Request().Context(), id)
}

// RequireAdmin rejects callers without the admin role. It must run after
// Auth.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !CurrentUser(c).IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}

// CurrentUser returns the authenticated user, or nil outside Auth.
func CurrentUser(c echo.Context) *domain.User {
	u, _ := c.Get(UserContextKey).(*domain.User)
	return u
}

func tokenFromRequest(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(auth.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func clearAuthCookie(c echo.Context) {
	if _, err := c.Cookie(auth.CookieName); err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
