package appointment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/medibook/internal/platform/events"
	"github.com/medibook/medibook/internal/platform/overlay"
	"github.com/medibook/medibook/internal/platform/validate"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

func (p *recordingPublisher) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type transitionCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *transitionCounter) RecordTransition(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[status]++
}

type stubDirectory map[string]int

func (d stubDirectory) ConsultationFee(_ context.Context, id string) (int, error) {
	fee, ok := d[id]
	if !ok {
		return 0, fmt.Errorf("doctor %s: %w", id, ErrDoctorNotFound)
	}
	return fee, nil
}

var scenarioCatalog = NewCatalogFromLabels("9:00-9:15", "9:15-9:30", "10:00-10:15")

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	repo := NewLocalRepository(overlay.NewMemoryStore(), nil)
	rescheduledAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]ServiceOption{WithServiceClock(func() time.Time { return rescheduledAt })}, opts...)
	return NewService(repo, scenarioCatalog, pub, opts...), pub
}

func booking(slot string) BookingRequest {
	return BookingRequest{
		DoctorID:         "D1",
		PatientID:        "P1",
		PatientName:      "Asha Rao",
		PatientPhone:     "+919800000001",
		Date:             "2025-01-01",
		TimeSlot:         slot,
		ConsultationType: ConsultationOnline,
		ConsultationFee:  500,
	}
}

func TestScenario_BookListAndResolve(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, PaymentCompleted, a.PaymentStatus)
	assert.NotEmpty(t, a.ID)

	list, err := svc.List(ctx, Filter{DoctorID: "D1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	free, err := svc.AvailableSlots(ctx, "D1", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"9:15-9:30", "10:00-10:15"}, free)

	assert.Equal(t, []events.Kind{events.AppointmentCreated}, pub.kinds())
	assert.Equal(t, a.ID, pub.last().Payload.AppointmentID)
}

func TestScenario_RescheduleReleasesOldSlot(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)

	moved, err := svc.Reschedule(ctx, a.ID, RescheduleRequest{Date: "2025-01-02", TimeSlot: "10:00-10:15", By: PartyDoctor})
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, moved.Status)
	assert.Equal(t, "2025-01-02", moved.Date)
	assert.Equal(t, "10:00-10:15", moved.TimeSlot)
	assert.Equal(t, "2025-01-01", moved.OriginalDate)
	assert.Equal(t, "9:00-9:15", moved.OriginalTimeSlot)
	assert.Equal(t, 1, moved.RescheduledCount)
	assert.Equal(t, PartyDoctor, moved.RescheduledBy)
	require.NotNil(t, moved.RescheduledAt)

	free, err := svc.AvailableSlots(ctx, "D1", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, free, "9:00-9:15")

	e := pub.last()
	assert.Equal(t, events.AppointmentRescheduled, e.Kind)
	assert.Equal(t, "2025-01-01", e.Payload.PreviousDate)
	assert.Equal(t, "9:00-9:15", e.Payload.PreviousTimeSlot)
	assert.Equal(t, "2025-01-02", e.Payload.Date)
	assert.Equal(t, "10:00-10:15", e.Payload.TimeSlot)
}

func TestReschedule_KeepsFirstOriginal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, a.ID, RescheduleRequest{Date: "2025-01-02", TimeSlot: "9:15-9:30", By: PartyPatient})
	require.NoError(t, err)
	second, err := svc.Reschedule(ctx, a.ID, RescheduleRequest{Date: "2025-01-03", TimeSlot: "10:00-10:15", By: PartyDoctor})
	require.NoError(t, err)

	assert.Equal(t, 2, second.RescheduledCount)
	assert.Equal(t, "2025-01-01", second.OriginalDate)
	assert.Equal(t, "9:00-9:15", second.OriginalTimeSlot)
	assert.Equal(t, PartyDoctor, second.RescheduledBy)
	assert.Equal(t, "2025-01-03", second.Date)
}

func TestReschedule_TargetMustBeFree(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	_, err = svc.Book(ctx, booking("9:15-9:30"))
	require.NoError(t, err)

	_, err = svc.Reschedule(ctx, first.ID, RescheduleRequest{Date: "2025-01-01", TimeSlot: "9:15-9:30", By: PartyPatient})
	assert.ErrorIs(t, err, ErrConflict)

	unchanged, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, unchanged.Status)
	assert.Zero(t, unchanged.RescheduledCount)
}

func TestRescheduledAppointmentHoldsItsNewSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	moved, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, moved.ID, RescheduleRequest{Date: "2025-01-01", TimeSlot: "10:00-10:15", By: PartyPatient})
	require.NoError(t, err)

	_, err = svc.Book(ctx, booking("10:00-10:15"))
	assert.ErrorIs(t, err, ErrConflict)

	other, err := svc.Book(ctx, booking("9:15-9:30"))
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, other.ID, RescheduleRequest{Date: "2025-01-01", TimeSlot: "10:00-10:15", By: PartyPatient})
	assert.ErrorIs(t, err, ErrConflict)

	day, err := svc.List(ctx, Filter{DoctorID: "D1", Date: "2025-01-01"})
	require.NoError(t, err)
	holders := 0
	for _, a := range day {
		if a.TimeSlot == "10:00-10:15" && a.Status.Open() {
			holders++
		}
	}
	assert.Equal(t, 1, holders)

	// Reschedule in place onto the slot it already holds is not a conflict.
	_, err = svc.Reschedule(ctx, moved.ID, RescheduleRequest{Date: "2025-01-01", TimeSlot: "10:00-10:15", By: PartyDoctor})
	require.NoError(t, err)
}

func TestAvailableSlots_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Book(ctx, booking("9:15-9:30"))
	require.NoError(t, err)

	first, err := svc.AvailableSlots(ctx, "D1", "2025-01-01")
	require.NoError(t, err)
	second, err := svc.AvailableSlots(ctx, "D1", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"9:00-9:15", "10:00-10:15"}, first)

	empty, err := svc.AvailableSlots(ctx, "D1", "2025-02-01")
	require.NoError(t, err)
	again, err := svc.AvailableSlots(ctx, "D1", "2025-02-01")
	require.NoError(t, err)
	assert.Equal(t, empty, again)
	assert.Equal(t, scenarioCatalog.Labels(), empty)
}

func TestBook_RejectsTakenSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	_, err = svc.Book(ctx, booking("9:00-9:15"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBook_CancelledSlotCanBeRebooked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, a.ID, CancelRequest{By: PartyPatient})
	require.NoError(t, err)

	again, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	assert.Equal(t, "T-2", again.TokenNumber)
}

func TestBook_ConcurrentCallersGetOneSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		won       int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := booking("9:15-9:30")
			req.PatientID = fmt.Sprintf("P%d", i)
			_, err := svc.Book(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, callers-1, conflicts)
}

func TestBook_TokenNumbersCountTheDoctorsDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	b, err := svc.Book(ctx, booking("9:15-9:30"))
	require.NoError(t, err)

	assert.Equal(t, "T-1", a.TokenNumber)
	assert.Equal(t, "T-2", b.TokenNumber)
}

func TestBook_Validation(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		edit  func(*BookingRequest)
		field string
	}{
		{"missing doctor", func(r *BookingRequest) { r.DoctorID = "" }, "doctorId"},
		{"bad date", func(r *BookingRequest) { r.Date = "01/01/2025" }, "date"},
		{"unknown consultation type", func(r *BookingRequest) { r.ConsultationType = "phone" }, "consultationType"},
		{"slot outside catalog", func(r *BookingRequest) { r.TimeSlot = "8:00-8:15" }, "timeSlot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := booking("9:00-9:15")
			tt.edit(&req)
			_, err := svc.Book(ctx, req)
			var ve *validate.Error
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
	assert.Empty(t, pub.kinds())
}

func TestBook_UsesDirectoryFee(t *testing.T) {
	svc, _ := newTestService(t, WithDoctorDirectory(stubDirectory{"D1": 1200}))
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	assert.Equal(t, 1200, a.ConsultationFee)

	req := booking("9:00-9:15")
	req.DoctorID = "ghost"
	_, err = svc.Book(ctx, req)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestComplete(t *testing.T) {
	counter := &transitionCounter{}
	svc, pub := newTestService(t, WithTransitionRecorder(counter))
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	done, err := svc.Complete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	free, err := svc.AvailableSlots(ctx, "D1", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, free, "9:00-9:15")

	assert.Equal(t, []events.Kind{events.AppointmentCreated, events.AppointmentUpdated}, pub.kinds())
	assert.Equal(t, map[string]int{"scheduled": 1, "completed": 1}, counter.counts)
}

func TestCancel_StoresReasonVerbatim(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	reason := "  Travelling;  will rebook next week  "
	got, err := svc.Cancel(ctx, a.ID, CancelRequest{By: PartyPatient, Reason: reason})
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, reason, got.CancelReason)
	assert.Equal(t, PartyPatient, got.CancelledBy)
	assert.Equal(t, reason, pub.last().Payload.Reason)
}

func TestCancel_FromRescheduled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, a.ID, RescheduleRequest{Date: "2025-01-02", TimeSlot: "9:00-9:15", By: PartyDoctor})
	require.NoError(t, err)

	got, err := svc.Cancel(ctx, a.ID, CancelRequest{By: PartyDoctor})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	done, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	_, err = svc.Complete(ctx, done.ID)
	require.NoError(t, err)

	cancelled, err := svc.Book(ctx, booking("9:15-9:30"))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, cancelled.ID, CancelRequest{})
	require.NoError(t, err)

	for _, id := range []string{done.ID, cancelled.ID} {
		_, err = svc.Complete(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = svc.Cancel(ctx, id, CancelRequest{})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = svc.Reschedule(ctx, id, RescheduleRequest{Date: "2025-01-05", TimeSlot: "10:00-10:15", By: PartyPatient})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
}

func TestUnknownAppointment(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Complete(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Reschedule(ctx, "missing", RescheduleRequest{Date: "2025-01-05", TimeSlot: "10:00-10:15", By: PartyPatient})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AttachPrescription(ctx, "missing", "rx-1", "Paracetamol")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, pub.kinds())
}

func TestTransition_Dispatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)

	_, err = svc.Transition(ctx, a.ID, TransitionRequest{Status: StatusScheduled})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Transition(ctx, a.ID, TransitionRequest{Status: "archived"})
	assert.True(t, validate.IsValidation(err))

	moved, err := svc.Transition(ctx, a.ID, TransitionRequest{
		Status: StatusRescheduled, Date: "2025-01-02", TimeSlot: "9:15-9:30", RescheduledBy: PartyPatient,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, moved.Status)

	cancelled, err := svc.Transition(ctx, a.ID, TransitionRequest{Status: StatusCancelled, Reason: "clash"})
	require.NoError(t, err)
	assert.Equal(t, "clash", cancelled.CancelReason)
}

func TestAttachPrescription(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	a, err := svc.Book(ctx, booking("9:00-9:15"))
	require.NoError(t, err)
	got, err := svc.AttachPrescription(ctx, a.ID, "rx-1", "Amoxicillin 500mg")
	require.NoError(t, err)

	assert.Equal(t, "rx-1", got.PrescriptionID)
	assert.Equal(t, "Amoxicillin 500mg", got.Prescription)
	assert.Equal(t, StatusScheduled, got.Status)
	assert.Equal(t, events.AppointmentUpdated, pub.last().Kind)
}

func TestAvailableSlots_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AvailableSlots(context.Background(), "", "2025-01-01")
	assert.True(t, validate.IsValidation(err))
	_, err = svc.AvailableSlots(context.Background(), "D1", "tomorrow")
	assert.True(t, validate.IsValidation(err))
}

func TestService_WithEventBus(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	var seen []events.Event
	bus.Subscribe(events.AppointmentCreated, func(_ context.Context, e events.Event) { seen = append(seen, e) })

	svc := NewService(NewLocalRepository(overlay.NewMemoryStore(), nil), scenarioCatalog, bus)
	a, err := svc.Book(context.Background(), booking("9:00-9:15"))
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, a.ID, seen[0].Payload.AppointmentID)
	assert.Equal(t, "D1", seen[0].Payload.DoctorID)
	assert.Equal(t, "scheduled", seen[0].Payload.Status)
}
