package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/auth"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/middleware"
)

// ProfileProvisioner creates the profile that accompanies a new account.
type ProfileProvisioner interface {
	Provision(ctx context.Context, user *domain.User, displayName string) (*domain.Profile, error)
}

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	users    domain.UserRepository
	profiles ProfileProvisioner
	tokens   *auth.Tokens
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users domain.UserRepository, profiles ProfileProvisioner, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{users: users, profiles: profiles, tokens: tokens}
}

// SignUp creates the account and its profile (POST /auth/signup).
func (h *AuthHandler) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	var req SignUpRequest
	if err := BindAndValidate(c, &req); err != nil {
		return HTTPError(err)
	}

	user, err := h.users.Create(ctx, req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrUserAlreadyExists) {
			logger.Error("Failed to create user", "error", err)
		}
		return HTTPError(err)
	}

	profile, err := h.profiles.Provision(ctx, user, req.DisplayName)
	if err != nil {
		// The account exists; the profile is created lazily on first access.
		logger.Error("Failed to provision profile", "user", domain.IDString(user.ID), "error", err)
	}

	logger.Info("User signed up", "user", domain.IDString(user.ID))
	return h.respondWithSession(c, http.StatusCreated, user, profile)
}

// SignIn verifies credentials and issues a token (POST /auth/signin).
func (h *AuthHandler) SignIn(c echo.Context) error {
	ctx := c.Request().Context()

	var req SignInRequest
	if err := BindAndValidate(c, &req); err != nil {
		return HTTPError(err)
	}

	user, err := h.users.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrNotFound) {
			middleware.FromContext(ctx).Warn("Failed login attempt", "email", req.Email)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		return HTTPError(err)
	}
	return h.respondWithSession(c, http.StatusOK, user, nil)
}

// SignOut clears the auth cookie (POST /auth/signout).
func (h *AuthHandler) SignOut(c echo.Context) error {
	setAuthCookie(c, "", time.Time{})
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) respondWithSession(c echo.Context, status int, user *domain.User, profile *domain.Profile) error {
	token, exp, err := h.tokens.Issue(user)
	if err != nil {
		return HTTPError(err)
	}
	setAuthCookie(c, token, exp)
	return c.JSON(status, SessionResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      NewUserResponse(user),
		Profile:   profile,
	})
}

func setAuthCookie(c echo.Context, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Request().TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	} else {
		cookie.Expires = expires
	}
	c.SetCookie(cookie)
}
