package prescription

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/domain/doctor"
	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/validate"
)

type DoctorLookup interface {
	Get(ctx context.Context, id string) (*doctor.Doctor, error)
}

type Handler struct {
	svc     *Service
	doctors DoctorLookup
	clinic  string
}

func NewHandler(svc *Service, doctors DoctorLookup, clinic string) *Handler {
	return &Handler{svc: svc, doctors: doctors, clinic: clinic}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/prescriptions", h.List)
	api.GET("/prescriptions/:id", h.Get)
	api.GET("/prescriptions/:id/pdf", h.PDF)

	write := api.Group("", auth.RequireRole(auth.RoleDoctor))
	write.POST("/prescriptions", h.Create)
	write.PUT("/prescriptions/:id", h.Update)
	write.PATCH("/prescriptions/:id/status", h.SetStatus)
	write.DELETE("/prescriptions/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if !auth.HasRole(ctx, auth.RoleAdmin) && req.DoctorID != auth.DoctorIDFromContext(ctx) {
		return echo.NewHTTPError(http.StatusForbidden, "doctors can only prescribe as themselves")
	}
	rx, err := h.svc.Create(ctx, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, rx)
}

// List filters by exactly one of patientId, doctorId or appointmentId.
// Without a filter patients get their own prescriptions and doctors the
// ones they wrote.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		items []*Prescription
		err   error
	)
	switch {
	case c.QueryParam("appointmentId") != "":
		items, err = h.svc.ListByAppointment(ctx, c.QueryParam("appointmentId"))
	case c.QueryParam("doctorId") != "":
		items, err = h.svc.ListByDoctor(ctx, c.QueryParam("doctorId"))
	case c.QueryParam("patientId") != "":
		items, err = h.svc.ListByPatient(ctx, c.QueryParam("patientId"))
	case auth.HasRole(ctx, auth.RoleDoctor) && auth.DoctorIDFromContext(ctx) != "":
		items, err = h.svc.ListByDoctor(ctx, auth.DoctorIDFromContext(ctx))
	default:
		items, err = h.svc.ListByPatient(ctx, auth.UserIDFromContext(ctx))
	}
	if err != nil {
		return toHTTPError(err)
	}
	visible := items[:0]
	for _, rx := range items {
		if canRead(ctx, rx) {
			visible = append(visible, rx)
		}
	}
	return c.JSON(http.StatusOK, visible)
}

func (h *Handler) Get(c echo.Context) error {
	rx, err := h.readable(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.writable(c); err != nil {
		return err
	}
	rx, err := h.svc.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) SetStatus(c echo.Context) error {
	var body struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.writable(c); err != nil {
		return err
	}
	rx, err := h.svc.SetStatus(c.Request().Context(), c.Param("id"), body.Status)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) Delete(c echo.Context) error {
	if _, err := h.writable(c); err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PDF(c echo.Context) error {
	rx, err := h.readable(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	header := Header{Clinic: h.clinic, DoctorName: rx.DoctorID, PatientName: rx.PatientID}
	if h.doctors != nil {
		if d, err := h.doctors.Get(ctx, rx.DoctorID); err == nil {
			header.DoctorName, header.Specialty = d.Name, d.Specialization
		}
	}
	if appt, err := h.svc.appts.Get(ctx, rx.AppointmentID); err == nil {
		header.PatientName = appt.PatientName
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, rx, header); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "render failed").SetInternal(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="prescription-`+rx.ID+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) readable(c echo.Context) (*Prescription, error) {
	rx, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, toHTTPError(err)
	}
	if !canRead(c.Request().Context(), rx) {
		return nil, echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	}
	return rx, nil
}

func (h *Handler) writable(c echo.Context) (*Prescription, error) {
	rx, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, toHTTPError(err)
	}
	ctx := c.Request().Context()
	if !auth.HasRole(ctx, auth.RoleAdmin) && auth.DoctorIDFromContext(ctx) != rx.DoctorID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "only the prescribing doctor can change this prescription")
	}
	return rx, nil
}

func canRead(ctx context.Context, rx *Prescription) bool {
	return auth.HasRole(ctx, auth.RoleAdmin) ||
		auth.DoctorIDFromContext(ctx) == rx.DoctorID && rx.DoctorID != "" ||
		auth.UserIDFromContext(ctx) == rx.PatientID
}

func toHTTPError(err error) error {
	if he, ok := validate.HTTPError(err); ok {
		return he
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, appointment.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
