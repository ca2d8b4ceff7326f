package prescription

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/platform/events"
	"github.com/medibook/medibook/internal/platform/overlay"
	"github.com/medibook/medibook/internal/platform/validate"
)

func newFixture(t *testing.T) (*Service, *appointment.Service) {
	t.Helper()
	repo := appointment.NewLocalRepository(overlay.NewMemoryStore(), []*appointment.Appointment{
		{ID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", PatientName: "Meera", Date: "2025-02-01", Status: appointment.StatusCompleted},
		{ID: "apt-2", DoctorID: "doc-1", PatientID: "pat-2", Date: "2025-02-03", Status: appointment.StatusScheduled},
	})
	appts := appointment.NewService(repo, appointment.DefaultCatalog(), events.Discard{})
	return NewService(overlay.NewMemoryStore(), appts), appts
}

func createRequest() CreateRequest {
	return CreateRequest{
		DoctorID:      "doc-1",
		PatientID:     "pat-1",
		AppointmentID: "apt-1",
		Medicines: []Medicine{
			{Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", Duration: "5 days"},
			{Name: "Paracetamol", Dosage: "650mg", Frequency: "as needed", Duration: "3 days", Notes: "after food"},
		},
		Diagnosis:    "Acute pharyngitis",
		Instructions: "Warm saline gargles twice a day.",
		FollowUpDate: "2025-02-08",
	}
}

func TestCreate_LinksAppointment(t *testing.T) {
	svc, appts := newFixture(t)
	ctx := context.Background()

	rx, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusActive, rx.Status)
	assert.Equal(t, "2025-02-01", rx.AppointmentDate)
	require.Len(t, rx.Medicines, 2)
	assert.NotEmpty(t, rx.Medicines[0].ID)
	assert.NotEqual(t, rx.Medicines[0].ID, rx.Medicines[1].ID)

	a, err := appts.Get(ctx, "apt-1")
	require.NoError(t, err)
	assert.Equal(t, rx.ID, a.PrescriptionID)
	assert.Equal(t, "Acute pharyngitis: Amoxicillin 500mg, Paracetamol 650mg", a.Prescription)
}

type failingLinker struct {
	AppointmentLinker
	fail bool
}

func (f *failingLinker) AttachPrescription(ctx context.Context, id, prescriptionID, summary string) (*appointment.Appointment, error) {
	if f.fail {
		return nil, errors.New("appointment store unavailable")
	}
	return f.AppointmentLinker.AttachPrescription(ctx, id, prescriptionID, summary)
}

func TestCreate_FailedLinkLeavesNoPrescription(t *testing.T) {
	_, appts := newFixture(t)
	linker := &failingLinker{AppointmentLinker: appts, fail: true}
	svc := NewService(overlay.NewMemoryStore(), linker)
	ctx := context.Background()

	_, err := svc.Create(ctx, createRequest())
	require.Error(t, err)
	list, err := svc.ListByAppointment(ctx, "apt-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	linker.fail = false
	rx, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)
	list, err = svc.ListByAppointment(ctx, "apt-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rx.ID, list[0].ID)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	req := createRequest()
	req.Medicines = nil
	_, err := svc.Create(ctx, req)
	assert.True(t, validate.IsValidation(err))

	req = createRequest()
	req.Medicines[1].Dosage = ""
	_, err = svc.Create(ctx, req)
	assert.True(t, validate.IsValidation(err))

	req = createRequest()
	req.FollowUpDate = "next week"
	_, err = svc.Create(ctx, req)
	assert.True(t, validate.IsValidation(err))

	req = createRequest()
	req.PatientID = "pat-2"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, ErrMismatch)

	req = createRequest()
	req.AppointmentID = "apt-404"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, appointment.ErrNotFound)
}

func TestUpdate_EditsInPlace(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	rx, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)
	svc.now = func() time.Time { return rx.UpdatedAt.Add(time.Minute) }

	diagnosis := "Viral pharyngitis"
	got, err := svc.Update(ctx, rx.ID, UpdateRequest{Diagnosis: &diagnosis})
	require.NoError(t, err)
	assert.Equal(t, rx.ID, got.ID)
	assert.Equal(t, diagnosis, got.Diagnosis)
	assert.Len(t, got.Medicines, 2)
	assert.True(t, got.UpdatedAt.After(rx.UpdatedAt))
	assert.True(t, rx.CreatedAt.Equal(got.CreatedAt))
}

func TestSetStatus(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	rx, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, rx.ID, StatusActive)
	assert.True(t, validate.IsValidation(err))

	done, err := svc.SetStatus(ctx, rx.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	_, err = svc.SetStatus(ctx, rx.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdate_CancelledIsFrozen(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	rx, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, rx.ID, StatusCancelled)
	require.NoError(t, err)

	notes := "changed"
	_, err = svc.Update(ctx, rx.ID, UpdateRequest{Instructions: &notes})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDelete_IsHard(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	rx, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, rx.ID))
	_, err = svc.Get(ctx, rx.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, rx.ID), ErrNotFound)

	list, err := svc.ListByPatient(ctx, "pat-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListings(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	first, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)
	svc.now = func() time.Time { return first.CreatedAt.Add(time.Hour) }
	second, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)

	byPatient, err := svc.ListByPatient(ctx, "pat-1")
	require.NoError(t, err)
	require.Len(t, byPatient, 2)
	assert.Equal(t, second.ID, byPatient[0].ID)

	byDoctor, err := svc.ListByDoctor(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, byDoctor, 2)

	byAppt, err := svc.ListByAppointment(ctx, "apt-2")
	require.NoError(t, err)
	assert.Empty(t, byAppt)
}

func TestWritePDF(t *testing.T) {
	rx := &Prescription{
		ID: "rx-1", AppointmentDate: "2025-02-01", Diagnosis: "Acute pharyngitis", Status: StatusActive,
		Medicines:    []Medicine{{Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", Duration: "5 days"}},
		Instructions: "Rest.",
	}
	var buf bytes.Buffer

	require.NoError(t, WritePDF(&buf, rx, Header{Clinic: "Medibook Clinic", DoctorName: "Dr. Priya Menon", PatientName: "Meera"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
