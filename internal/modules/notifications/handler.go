package notifications

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
)

// Handler serves /app/notifications, /app/push and the dispatch function.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) List(c echo.Context) error {
	var p Page
	if err := handlers.BindAndValidate(c, &p); err != nil {
		return handlers.HTTPError(err)
	}
	out, err := h.service.List(c.Request().Context(), middleware.CurrentUser(c).ID, p)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) UnreadCount(c echo.Context) error {
	n, err := h.service.UnreadCount(c.Request().Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) MarkRead(c echo.Context) error {
	if err := h.service.MarkRead(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		return handlers.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	n, err := h.service.MarkAllRead(c.Request().Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": n})
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		return handlers.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RegisterDevice(c echo.Context) error {
	var in DeviceInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	d, err := h.service.RegisterDevice(c.Request().Context(), middleware.CurrentUser(c).ID, in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) RemoveDevice(c echo.Context) error {
	if err := h.service.RemoveDevice(c.Request().Context(), middleware.CurrentUser(c).ID, c.Param("token")); err != nil {
		return handlers.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Dispatch(c echo.Context) error {
	var in DispatchInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	res, err := h.service.DispatchTo(c.Request().Context(), in)
	if err != nil {
		middleware.FromContext(c.Request().Context()).Warn("Push dispatch failed", "user", in.UserID, "error", err)
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// encode renders a realtime frame. Errors cannot happen for the event
// types involved but are logged all the same.
func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode realtime frame", "error", err)
		return nil
	}
	return data
}
