package gifts

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
)

// Handler serves /app/gifts.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) List(c echo.Context) error {
	out, err := h.service.List(c.Request().Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	idea, err := h.service.Create(c.Request().Context(), middleware.CurrentUser(c).ID, in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, idea)
}

func (h *Handler) Update(c echo.Context) error {
	var in UpdateInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	idea, err := h.service.Update(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id"), in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, idea)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		return handlers.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type regiftBody struct {
	Regift *bool `json:"regift" validate:"required"`
}

func (h *Handler) Regift(c echo.Context) error {
	var in regiftBody
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	idea, err := h.service.SetRegift(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id"), *in.Regift)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, idea)
}

func (h *Handler) SetImage(c echo.Context) error {
	var in ImageInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	idea, err := h.service.SetImage(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id"), in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, idea)
}

func (h *Handler) Offer(c echo.Context) error {
	offer, err := h.service.Offer(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, offer)
}

func (h *Handler) Unoffer(c echo.Context) error {
	if err := h.service.Unoffer(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		return handlers.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
