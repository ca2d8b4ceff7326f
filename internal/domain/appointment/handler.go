package appointment

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

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
	// Public: the booking page shows free slots before login.
	api.GET("/appointments/slots", h.AvailableSlots)

	api.GET("/appointments", h.List)
	api.GET("/appointments/:id", h.Get)
	api.PATCH("/appointments/:id", h.Update)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.POST("/appointments/:id/reschedule", h.Reschedule)

	api.POST("/appointments", h.Create, auth.RequireRole(auth.RolePatient))
	api.POST("/appointments/:id/complete", h.Complete, auth.RequireRole(auth.RoleDoctor))
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	doctorID, date := c.QueryParam("doctorId"), c.QueryParam("date")
	slots, err := h.svc.AvailableSlots(c.Request().Context(), doctorID, date)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctorId": doctorID,
		"date":     date,
		"slots":    slots,
	})
}

func (h *Handler) List(c echo.Context) error {
	f := Filter{
		DoctorID:  c.QueryParam("doctorId"),
		PatientID: c.QueryParam("patientId"),
		Date:      c.QueryParam("date"),
		Status:    Status(c.QueryParam("status")),
	}
	f = scopeFilter(c.Request().Context(), f)

	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Apply(items, pagination.FromContext(c)))
}

func (h *Handler) Get(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	if !canAccess(c.Request().Context(), a) {
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Create(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if !auth.HasRole(ctx, auth.RoleAdmin) && req.PatientID != auth.UserIDFromContext(ctx) {
		return echo.NewHTTPError(http.StatusForbidden, "patients can only book for themselves")
	}
	a, err := h.svc.Book(ctx, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Update(c echo.Context) error {
	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Status == StatusCompleted && !auth.HasRole(c.Request().Context(), auth.RoleDoctor) {
		return echo.NewHTTPError(http.StatusForbidden, "only doctors can complete appointments")
	}
	if err := h.authorize(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	req.CancelledBy = actingParty(ctx, req.CancelledBy)
	req.RescheduledBy = actingParty(ctx, req.RescheduledBy)
	a, err := h.svc.Transition(ctx, c.Param("id"), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Complete(c echo.Context) error {
	if err := h.authorize(c); err != nil {
		return err
	}
	a, err := h.svc.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.authorize(c); err != nil {
		return err
	}
	req.By = actingParty(c.Request().Context(), req.By)
	a, err := h.svc.Cancel(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Reschedule(c echo.Context) error {
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.authorize(c); err != nil {
		return err
	}
	req.By = actingParty(c.Request().Context(), req.By)
	a, err := h.svc.Reschedule(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// authorize loads the appointment named in the path and checks the caller is
// one of its parties.
func (h *Handler) authorize(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	if !canAccess(c.Request().Context(), a) {
		return echo.NewHTTPError(http.StatusForbidden, ErrForbidden.Error())
	}
	return nil
}

// canAccess: admins see everything, doctors their own schedule, patients
// their own bookings.
func canAccess(ctx context.Context, a *Appointment) bool {
	switch {
	case auth.HasRole(ctx, auth.RoleAdmin):
		return true
	case auth.HasRole(ctx, auth.RoleDoctor) && auth.DoctorIDFromContext(ctx) == a.DoctorID:
		return true
	case auth.UserIDFromContext(ctx) != "" && auth.UserIDFromContext(ctx) == a.PatientID:
		return true
	}
	return false
}

// actingParty is the party recorded for a cancel or reschedule. It follows
// the caller's role; only admins acting on someone's behalf may name it.
func actingParty(ctx context.Context, claimed string) string {
	switch {
	case auth.IsAdmin(ctx):
		return claimed
	case auth.HasRole(ctx, auth.RoleDoctor) && auth.DoctorIDFromContext(ctx) != "":
		return PartyDoctor
	default:
		return PartyPatient
	}
}

func scopeFilter(ctx context.Context, f Filter) Filter {
	switch {
	case auth.HasRole(ctx, auth.RoleAdmin):
	case auth.HasRole(ctx, auth.RoleDoctor):
		f.DoctorID = auth.DoctorIDFromContext(ctx)
	default:
		f.PatientID = auth.UserIDFromContext(ctx)
	}
	return f
}

func toHTTPError(err error) error {
	if he, ok := validate.HTTPError(err); ok {
		return he
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDoctorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
