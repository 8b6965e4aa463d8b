package profile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/modules/rpc"
	"github.com/pliiiz/pliiiz/internal/storage"
)

// Handler serves the profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// Get returns the caller's profile (GET /app/profile).
func (h *Handler) Get(c echo.Context) error {
	p, err := h.service.Get(c.Request().Context(), middleware.CurrentUser(c))
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// Update applies a partial update (PATCH /app/profile).
func (h *Handler) Update(c echo.Context) error {
	var upd domain.ProfileUpdate
	if err := handlers.BindAndValidate(c, &upd); err != nil {
		return handlers.HTTPError(err)
	}
	p, err := h.service.Update(c.Request().Context(), middleware.CurrentUser(c), upd)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// UploadAvatar stores a multipart "avatar" file (POST /app/profile/avatar).
func (h *Handler) UploadAvatar(c echo.Context) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "avatar file is required")
	}
	data, mimeType, err := storage.ReadImage(fh, MaxAvatarBytes)
	if err != nil {
		return handlers.HTTPError(err)
	}
	p, err := h.service.SetAvatar(c.Request().Context(), middleware.CurrentUser(c), data, mimeType)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type regenerateAvatarRequest struct {
	Style string `json:"style" validate:"max=200"`
}

// RegenerateAvatar generates an illustrated avatar
// (POST /functions/avatar/regenerate).
func (h *Handler) RegenerateAvatar(c echo.Context) error {
	var req regenerateAvatarRequest
	if err := handlers.BindAndValidate(c, &req); err != nil {
		return handlers.HTTPError(err)
	}
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)
	p, err := h.service.RegenerateAvatar(ctx, user, req.Style)
	if err != nil {
		middleware.FromContext(ctx).Warn("Avatar regeneration failed", "user", domain.IDString(user.ID), "error", err)
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type slugParams struct {
	Slug string `json:"slug" validate:"required,max=40"`
}

func (h *Handler) userIDBySlug(ctx context.Context, caller *domain.User, params json.RawMessage) (any, error) {
	p, err := rpc.Decode[slugParams](params)
	if err != nil {
		return nil, err
	}
	id, err := h.service.UserIDBySlug(ctx, p.Slug)
	if err != nil {
		return nil, err
	}
	return map[string]string{"user_id": id}, nil
}

func (h *Handler) publicProfile(ctx context.Context, caller *domain.User, params json.RawMessage) (any, error) {
	t, err := rpc.Decode[Target](params)
	if err != nil {
		return nil, err
	}
	return h.service.PublicProfile(ctx, caller, t)
}
