package history

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/domain/prescription"
	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/overlay"
	"github.com/medibook/medibook/internal/platform/validate"
)

type patients map[string]bool

func (p patients) PatientExists(_ context.Context, id string) (bool, error) { return p[id], nil }

type staticRx []*prescription.Prescription

func (s staticRx) ListByPatient(_ context.Context, patientID string) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	for _, p := range s {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

type failingRx struct{}

func (failingRx) ListByPatient(context.Context, string) ([]*prescription.Prescription, error) {
	return nil, errors.New("store down")
}

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestService(rx PrescriptionLister) *Service {
	appts := appointment.NewLocalRepository(overlay.NewMemoryStore(), []*appointment.Appointment{
		{ID: "a1", PatientID: "pat-1", DoctorID: "doc-1", Date: "2026-03-01", Status: appointment.StatusCompleted, CreatedAt: t0},
		{ID: "a2", PatientID: "pat-1", DoctorID: "doc-2", Date: "2026-03-10", Status: appointment.StatusScheduled, CreatedAt: t0},
		{ID: "a3", PatientID: "pat-1", DoctorID: "doc-1", Date: "2026-02-15", Status: appointment.StatusCancelled, CreatedAt: t0},
		{ID: "other", PatientID: "pat-2", DoctorID: "doc-1", Date: "2026-03-01", Status: appointment.StatusScheduled, CreatedAt: t0},
	})
	return NewService(appts, rx, patients{"pat-1": true, "pat-2": true})
}

var seededRx = staticRx{
	{ID: "rx1", PatientID: "pat-1", AppointmentID: "a1", AppointmentDate: "2026-03-01", CreatedAt: t0.Add(time.Hour)},
	{ID: "rx-other", PatientID: "pat-2", AppointmentDate: "2026-03-01", CreatedAt: t0},
}

func ids(tl *Timeline) []string {
	out := make([]string, 0, len(tl.Entries))
	for _, e := range tl.Entries {
		if e.Appointment != nil {
			out = append(out, e.Appointment.ID)
		} else {
			out = append(out, e.Prescription.ID)
		}
	}
	return out
}

func TestForPatient_MostRecentFirst(t *testing.T) {
	svc := newTestService(seededRx)

	tl, err := svc.ForPatient(context.Background(), "pat-1", "", "")
	require.NoError(t, err)
	// Same day: the prescription was written after the visit was booked.
	assert.Equal(t, []string{"a2", "rx1", "a1", "a3"}, ids(tl))
	assert.Equal(t, KindPrescription, tl.Entries[1].Kind)
}

func TestForPatient_InclusiveRange(t *testing.T) {
	svc := newTestService(seededRx)

	tl, err := svc.ForPatient(context.Background(), "pat-1", "2026-03-01", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"rx1", "a1"}, ids(tl))

	tl, err = svc.ForPatient(context.Background(), "pat-1", "2026-03-02", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, ids(tl))

	tl, err = svc.ForPatient(context.Background(), "pat-1", "2027-01-01", "")
	require.NoError(t, err)
	assert.NotNil(t, tl.Entries)
	assert.Empty(t, tl.Entries)
}

func TestForPatient_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestService(seededRx).ForPatient(ctx, "pat-404", "", "")
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = newTestService(seededRx).ForPatient(ctx, "pat-1", "03/01/2026", "")
	assert.True(t, validate.IsValidation(err))

	_, err = newTestService(seededRx).ForPatient(ctx, "pat-1", "2026-03-10", "2026-03-01")
	assert.True(t, validate.IsValidation(err))

	_, err = newTestService(failingRx{}).ForPatient(ctx, "pat-1", "", "")
	assert.EqualError(t, err, "store down")
}

func TestHandler_Get(t *testing.T) {
	h := NewHandler(newTestService(seededRx))
	e := echo.New()

	call := func(patientID, query, caller string, roles ...string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/api/medical-history/"+patientID+query, nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), caller, roles, ""))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("patientId")
		c.SetParamValues(patientID)
		return rec, h.Get(c)
	}

	rec, err := call("pat-1", "?startDate=2026-03-01", "pat-1", auth.RolePatient)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"patientId":"pat-1"`)

	_, err = call("pat-2", "", "pat-1", auth.RolePatient)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)

	_, err = call("pat-404", "", "usr-doc-1", auth.RoleDoctor)
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)

	_, err = call("pat-1", "?endDate=tomorrow", "usr-doc-1", auth.RoleDoctor)
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
