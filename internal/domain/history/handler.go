package history

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the history route on g, which is expected to be the
// /api group rather than /api/v1.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/medical-history/:patientId", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	patientID := c.Param("patientId")
	if auth.HasRole(ctx, auth.RolePatient) && !auth.HasRole(ctx, auth.RoleAdmin) &&
		auth.UserIDFromContext(ctx) != patientID {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only read their own history")
	}

	tl, err := h.svc.ForPatient(ctx, patientID, c.QueryParam("startDate"), c.QueryParam("endDate"))
	if err != nil {
		if he, ok := validate.HTTPError(err); ok {
			return he
		}
		if errors.Is(err, ErrPatientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "load medical history failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, tl)
}
