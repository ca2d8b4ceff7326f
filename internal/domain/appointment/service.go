package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/medibook/medibook/internal/platform/events"
	"github.com/medibook/medibook/internal/platform/keylock"
	"github.com/medibook/medibook/internal/platform/validate"
)

// DoctorDirectory resolves a doctor's consultation fee. Unknown doctors
// return an error wrapping ErrDoctorNotFound.
type DoctorDirectory interface {
	ConsultationFee(ctx context.Context, doctorID string) (int, error)
}

// TransitionRecorder counts status changes; telemetry.Metrics implements it.
type TransitionRecorder interface {
	RecordTransition(status string)
}

type BookingRequest struct {
	DoctorID         string `json:"doctorId" validate:"required"`
	PatientID        string `json:"patientId" validate:"required"`
	PatientName      string `json:"patientName" validate:"required"`
	PatientPhone     string `json:"patientPhone" validate:"required"`
	Date             string `json:"date" validate:"required,isodate"`
	TimeSlot         string `json:"timeSlot" validate:"required"`
	ConsultationType string `json:"consultationType" validate:"required,oneof=online offline"`
	Symptoms         string `json:"symptoms"`
	ConsultationFee  int    `json:"consultationFee" validate:"min=0"`
}

type RescheduleRequest struct {
	Date     string `json:"date" validate:"required,isodate"`
	TimeSlot string `json:"timeSlot" validate:"required"`
	By       string `json:"rescheduledBy" validate:"required,oneof=doctor patient"`
}

type CancelRequest struct {
	By     string `json:"cancelledBy" validate:"omitempty,oneof=doctor patient"`
	Reason string `json:"reason"`
}

// Service is the appointment lifecycle manager. It is the only writer of
// status transitions and announces every successful write on the bus.
type Service struct {
	repo     Repository
	catalog  *Catalog
	events   events.Publisher
	doctors  DoctorDirectory
	recorder TransitionRecorder
	locks    *keylock.Locker
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithDoctorDirectory(d DoctorDirectory) ServiceOption {
	return func(s *Service) { s.doctors = d }
}

func WithTransitionRecorder(r TransitionRecorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, catalog *Catalog, pub events.Publisher, opts ...ServiceOption) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if pub == nil {
		pub = events.Discard{}
	}
	s := &Service{
		repo:    repo,
		catalog: catalog,
		events:  pub,
		locks:   keylock.New(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Catalog() *Catalog { return s.catalog }

func slotKey(doctorID, date string) string { return "slot:" + doctorID + ":" + date }

func recordKey(id string) string { return "appointment:" + id }

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validate.Field("status", "must be one of scheduled completed cancelled rescheduled")
	}
	return s.repo.List(ctx, f)
}

// AvailableSlots lists the free catalog slots for a doctor on a date.
func (s *Service) AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	if doctorID == "" {
		return nil, validate.Field("doctorId", "is required")
	}
	if _, err := time.Parse(validate.DateLayout, date); err != nil {
		return nil, validate.Field("date", "must be a date in YYYY-MM-DD format")
	}
	appts, err := s.repo.List(ctx, Filter{DoctorID: doctorID, Date: date})
	if err != nil {
		return nil, err
	}
	return FreeSlots(s.catalog, appts, doctorID, date), nil
}

// Book creates a scheduled, paid appointment. Availability is re-checked
// under the doctor's per-day lock so two callers racing for one slot cannot
// both succeed.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !s.catalog.Contains(req.TimeSlot) {
		return nil, validate.Field("timeSlot", "is not offered by the clinic")
	}

	fee := req.ConsultationFee
	if s.doctors != nil {
		f, err := s.doctors.ConsultationFee(ctx, req.DoctorID)
		if err != nil {
			return nil, err
		}
		fee = f
	}

	unlock := s.locks.Lock(slotKey(req.DoctorID, req.Date))
	defer unlock()

	sameDay, err := s.repo.List(ctx, Filter{DoctorID: req.DoctorID, Date: req.Date})
	if err != nil {
		return nil, err
	}
	if slotHeld(sameDay, req.DoctorID, req.Date, req.TimeSlot, "") {
		return nil, fmt.Errorf("%s on %s: %w", req.TimeSlot, req.Date, ErrConflict)
	}

	created, err := s.repo.Append(ctx, &Appointment{
		DoctorID:         req.DoctorID,
		PatientID:        req.PatientID,
		PatientName:      req.PatientName,
		PatientPhone:     req.PatientPhone,
		Date:             req.Date,
		TimeSlot:         req.TimeSlot,
		ConsultationType: req.ConsultationType,
		Status:           StatusScheduled,
		Symptoms:         req.Symptoms,
		ConsultationFee:  fee,
		TokenNumber:      fmt.Sprintf("T-%d", len(sameDay)+1),
		PaymentStatus:    PaymentCompleted,
	})
	if err != nil {
		return nil, err
	}

	s.record(StatusScheduled)
	s.events.Publish(ctx, events.Event{Kind: events.AppointmentCreated, Payload: payload(created)})
	return created, nil
}

func (s *Service) Complete(ctx context.Context, id string) (*Appointment, error) {
	unlock := s.locks.Lock(recordKey(id))
	defer unlock()

	if _, err := s.openAppointment(ctx, id, StatusCompleted); err != nil {
		return nil, err
	}
	updated, err := s.repo.Mutate(ctx, id, Patch{Status: ptr(StatusCompleted)})
	if err != nil {
		return nil, err
	}
	s.record(StatusCompleted)
	s.events.Publish(ctx, events.Event{Kind: events.AppointmentUpdated, Payload: payload(updated)})
	return updated, nil
}

// Cancel stores the reason exactly as given.
func (s *Service) Cancel(ctx context.Context, id string, req CancelRequest) (*Appointment, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(recordKey(id))
	defer unlock()

	if _, err := s.openAppointment(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	p := Patch{Status: ptr(StatusCancelled), CancelReason: ptr(req.Reason)}
	if req.By != "" {
		p.CancelledBy = ptr(req.By)
	}
	updated, err := s.repo.Mutate(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.record(StatusCancelled)
	pl := payload(updated)
	pl.Reason = req.Reason
	s.events.Publish(ctx, events.Event{Kind: events.AppointmentUpdated, Payload: pl})
	return updated, nil
}

// Reschedule moves an open appointment to a free slot. The first move
// records where the appointment was originally booked; later moves keep
// that original.
func (s *Service) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Appointment, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !s.catalog.Contains(req.TimeSlot) {
		return nil, validate.Field("timeSlot", "is not offered by the clinic")
	}

	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.LockMany(recordKey(id), slotKey(before.DoctorID, before.Date), slotKey(before.DoctorID, req.Date))
	defer unlock()

	cur, err := s.openAppointment(ctx, id, StatusRescheduled)
	if err != nil {
		return nil, err
	}
	if cur.Date != before.Date {
		// Moved by someone else between the read and the lock.
		return nil, fmt.Errorf("appointment %s changed concurrently: %w", id, ErrConflict)
	}

	target, err := s.repo.List(ctx, Filter{DoctorID: cur.DoctorID, Date: req.Date})
	if err != nil {
		return nil, err
	}
	if slotHeld(target, cur.DoctorID, req.Date, req.TimeSlot, cur.ID) {
		return nil, fmt.Errorf("%s on %s: %w", req.TimeSlot, req.Date, ErrConflict)
	}

	p := Patch{
		Status:           ptr(StatusRescheduled),
		Date:             ptr(req.Date),
		TimeSlot:         ptr(req.TimeSlot),
		RescheduledBy:    ptr(req.By),
		RescheduledAt:    ptr(s.now()),
		RescheduledCount: ptr(cur.RescheduledCount + 1),
	}
	if cur.RescheduledCount == 0 {
		p.OriginalDate = ptr(cur.Date)
		p.OriginalTimeSlot = ptr(cur.TimeSlot)
	}
	updated, err := s.repo.Mutate(ctx, id, p)
	if err != nil {
		return nil, err
	}

	s.record(StatusRescheduled)
	pl := payload(updated)
	pl.PreviousDate = cur.Date
	pl.PreviousTimeSlot = cur.TimeSlot
	pl.RescheduledBy = req.By
	s.events.Publish(ctx, events.Event{Kind: events.AppointmentRescheduled, Payload: pl})
	return updated, nil
}

// AttachPrescription links a written prescription to its appointment.
func (s *Service) AttachPrescription(ctx context.Context, id, prescriptionID, summary string) (*Appointment, error) {
	unlock := s.locks.Lock(recordKey(id))
	defer unlock()

	updated, err := s.repo.Mutate(ctx, id, Patch{PrescriptionID: ptr(prescriptionID), Prescription: ptr(summary)})
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{Kind: events.AppointmentUpdated, Payload: payload(updated)})
	return updated, nil
}

// Transition dispatches a generic status change, as sent by PATCH.
func (s *Service) Transition(ctx context.Context, id string, req TransitionRequest) (*Appointment, error) {
	switch req.Status {
	case StatusCompleted:
		return s.Complete(ctx, id)
	case StatusCancelled:
		return s.Cancel(ctx, id, CancelRequest{By: req.CancelledBy, Reason: req.Reason})
	case StatusRescheduled:
		return s.Reschedule(ctx, id, RescheduleRequest{Date: req.Date, TimeSlot: req.TimeSlot, By: req.RescheduledBy})
	case StatusScheduled:
		return nil, fmt.Errorf("cannot move an appointment back to scheduled: %w", ErrInvalidTransition)
	default:
		return nil, validate.Field("status", "must be one of completed cancelled rescheduled")
	}
}

// TransitionRequest is the body of PATCH /appointments/:id.
type TransitionRequest struct {
	Status        Status `json:"status"`
	Reason        string `json:"reason"`
	CancelledBy   string `json:"cancelledBy"`
	Date          string `json:"date"`
	TimeSlot      string `json:"timeSlot"`
	RescheduledBy string `json:"rescheduledBy"`
}

func (s *Service) openAppointment(ctx context.Context, id string, to Status) (*Appointment, error) {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cur.Status.Open() {
		return nil, fmt.Errorf("%s -> %s: %w", cur.Status, to, ErrInvalidTransition)
	}
	return cur, nil
}

func (s *Service) record(st Status) {
	if s.recorder != nil {
		s.recorder.RecordTransition(string(st))
	}
}

func payload(a *Appointment) events.Payload {
	return events.Payload{
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Status:        string(a.Status),
		Date:          a.Date,
		TimeSlot:      a.TimeSlot,
		Reason:        a.CancelReason,
	}
}
