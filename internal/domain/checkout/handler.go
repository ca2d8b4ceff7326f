package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/checkout/steps", h.Steps)
	api.POST("/checkout", h.Checkout, auth.RequireRole(auth.RolePatient))
}

func (h *Handler) Steps(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Pipeline().Steps())
}

// Checkout blocks until the booking is made. Clients that accept
// text/event-stream get each progress report as an SSE "progress" event and
// the appointment as a final "booked" event. Closing the connection cancels
// the pipeline.
func (h *Handler) Checkout(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if !auth.HasRole(ctx, auth.RoleAdmin) && req.PatientID != auth.UserIDFromContext(ctx) {
		return echo.NewHTTPError(http.StatusForbidden, "patients can only book for themselves")
	}

	if !strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/event-stream") {
		a, err := h.svc.Checkout(ctx, req, nil)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusCreated, a)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.WriteHeader(http.StatusOK)

	a, err := h.svc.Checkout(ctx, req, func(p Progress) {
		_ = writeEvent(res, "progress", p)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		he, _ := toHTTPError(err).(*echo.HTTPError)
		msg := err.Error()
		if he != nil {
			msg = fmt.Sprint(he.Message)
		}
		return writeEvent(res, "error", map[string]interface{}{"message": msg})
	}
	return writeEvent(res, "booked", a)
}

func writeEvent(res *echo.Response, event string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, raw); err != nil {
		return err
	}
	res.Flush()
	return nil
}

func toHTTPError(err error) error {
	if he, ok := validate.HTTPError(err); ok {
		return he
	}
	switch {
	case errors.Is(err, appointment.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, appointment.ErrDoctorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "checkout failed").SetInternal(err)
}
