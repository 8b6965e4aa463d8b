package images

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/giftimage"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/modules/rpc"
)

// Handler serves the image functions and admin routes.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) Generate(c echo.Context) error {
	var in giftimage.Idea
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	res, err := h.service.Generate(c.Request().Context(), middleware.CurrentUser(c).ID, in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) RunBatch(c echo.Context) error {
	var in BatchInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	summary, err := h.service.RunBatch(c.Request().Context(), in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) Jobs(c echo.Context) error {
	var q JobQuery
	if err := handlers.BindAndValidate(c, &q); err != nil {
		return handlers.HTTPError(err)
	}
	jobs, err := h.service.Jobs(c.Request().Context(), q)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, jobs)
}

func (h *Handler) Rescore(c echo.Context) error {
	var in RescoreInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	n, err := h.service.Rescore(c.Request().Context(), in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": n})
}

func (h *Handler) Search(c echo.Context) error {
	var q SearchQuery
	if err := handlers.BindAndValidate(c, &q); err != nil {
		return handlers.HTTPError(err)
	}
	photos, err := h.service.Search(c.Request().Context(), q)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, photos)
}

func (h *Handler) Track(c echo.Context) error {
	var in TrackInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	if err := h.service.Track(c.Request().Context(), in); err != nil {
		return handlers.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) requestRegen(ctx context.Context, caller *domain.User, params json.RawMessage) (any, error) {
	req, err := rpc.Decode[RegenRequest](params)
	if err != nil {
		return nil, err
	}
	return h.service.RequestRegen(ctx, caller, req)
}
