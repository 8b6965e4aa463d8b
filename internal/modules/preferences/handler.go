package preferences

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
)

// Handler serves /app/preferences.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	item, err := h.service.Create(c.Request().Context(), middleware.CurrentUser(c).ID, in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) Update(c echo.Context) error {
	var in UpdateInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	item, err := h.service.Update(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id"), in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		return handlers.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Reorder(c echo.Context) error {
	var in ReorderInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	items, err := h.service.Reorder(c.Request().Context(), middleware.CurrentUser(c).ID, in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}
