package contacts

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/handlers"
	"github.com/pliiiz/pliiiz/internal/middleware"
)

// Handler serves /app/contacts.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// SendRequest answers 201 for a new request, 202 when an invite was
// emailed and 200 otherwise.
func (h *Handler) SendRequest(c echo.Context) error {
	var in RequestInput
	if err := handlers.BindAndValidate(c, &in); err != nil {
		return handlers.HTTPError(err)
	}
	res, err := h.service.SendRequest(c.Request().Context(), middleware.CurrentUser(c), in)
	if err != nil {
		return handlers.HTTPError(err)
	}
	status := http.StatusOK
	switch res.Outcome {
	case OutcomeCreated:
		status = http.StatusCreated
	case OutcomeInvited:
		status = http.StatusAccepted
	}
	return c.JSON(status, res)
}

func (h *Handler) ListRequests(c echo.Context) error {
	views, err := h.service.ListRequests(c.Request().Context(), middleware.CurrentUser(c), Direction(c.QueryParam("direction")))
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) respond(fn func(ctx context.Context, user *domain.User, id string) (*domain.ContactRequest, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := fn(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"))
		if err != nil {
			return handlers.HTTPError(err)
		}
		return c.JSON(http.StatusOK, req)
	}
}

func (h *Handler) List(c echo.Context) error {
	out, err := h.service.List(c.Request().Context(), middleware.CurrentUser(c))
	if err != nil {
		return handlers.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Remove(c echo.Context) error {
	if err := h.service.Remove(c.Request().Context(), middleware.CurrentUser(c), c.Param("userID")); err != nil {
		return handlers.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) resync(ctx context.Context, caller *domain.User, params json.RawMessage) (any, error) {
	return h.service.Resync(ctx)
}
