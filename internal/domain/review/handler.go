package review

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/validate"
	"github.com/medibook/medibook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/:id/reviews", h.ListByDoctor)
	api.POST("/reviews", h.Create, auth.RequireRole(auth.RolePatient))
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	r, err := h.svc.Create(ctx, auth.UserIDFromContext(ctx), req)
	if err != nil {
		if he, ok := validate.HTTPError(err); ok {
			return he
		}
		switch {
		case errors.Is(err, appointment.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotParticipant):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrAlreadyReviewed), errors.Is(err, ErrNotReviewable):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "create review failed").SetInternal(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	items, err := h.svc.ListByDoctor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "list reviews failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, pagination.Apply(items, pagination.FromContext(c)))
}
