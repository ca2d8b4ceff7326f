package prescription

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/platform/keylock"
	"github.com/medibook/medibook/internal/platform/overlay"
	"github.com/medibook/medibook/internal/platform/validate"
)

// AppointmentLinker is the slice of the lifecycle manager prescriptions use.
type AppointmentLinker interface {
	Get(ctx context.Context, id string) (*appointment.Appointment, error)
	AttachPrescription(ctx context.Context, id, prescriptionID, summary string) (*appointment.Appointment, error)
}

type Service struct {
	store *overlay.Collection[Prescription]
	appts AppointmentLinker
	locks *keylock.Locker
	now   func() time.Time
}

func NewService(store overlay.Store, appts AppointmentLinker) *Service {
	return &Service{
		store: overlay.NewCollection[Prescription](store, "prescriptions"),
		appts: appts,
		locks: keylock.New(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Prescription, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	appt, err := s.appts.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != req.DoctorID || appt.PatientID != req.PatientID {
		return nil, ErrMismatch
	}

	now := s.now()
	rx := &Prescription{
		ID:              uuid.NewString(),
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		AppointmentID:   appt.ID,
		AppointmentDate: appt.Date,
		Medicines:       withIDs(req.Medicines),
		Diagnosis:       req.Diagnosis,
		Instructions:    req.Instructions,
		FollowUpDate:    req.FollowUpDate,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Put(ctx, rx.ID, rx); err != nil {
		return nil, fmt.Errorf("save prescription: %w", err)
	}
	if _, err := s.appts.AttachPrescription(ctx, appt.ID, rx.ID, Summary(rx)); err != nil {
		if derr := s.store.Delete(ctx, rx.ID); derr != nil {
			err = errors.Join(err, fmt.Errorf("roll back prescription %s: %w", rx.ID, derr))
		}
		return nil, fmt.Errorf("link prescription to appointment: %w", err)
	}
	return rx, nil
}

func withIDs(meds []Medicine) []Medicine {
	out := make([]Medicine, len(meds))
	for i, m := range meds {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		out[i] = m
	}
	return out
}

// Summary is the one-line text stored on the appointment.
func Summary(rx *Prescription) string {
	names := make([]string, 0, len(rx.Medicines))
	for _, m := range rx.Medicines {
		names = append(names, m.Name+" "+m.Dosage)
	}
	return strings.TrimSpace(rx.Diagnosis + ": " + strings.Join(names, ", "))
}

func (s *Service) Get(ctx context.Context, id string) (*Prescription, error) {
	rx, err := s.store.Get(ctx, id)
	if errors.Is(err, overlay.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rx, err
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Prescription, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return s.modify(ctx, id, func(rx *Prescription) error {
		if rx.Status == StatusCancelled {
			return fmt.Errorf("cancelled prescriptions cannot be edited: %w", ErrInvalidTransition)
		}
		if req.Medicines != nil {
			rx.Medicines = withIDs(req.Medicines)
		}
		if req.Diagnosis != nil {
			rx.Diagnosis = *req.Diagnosis
		}
		if req.Instructions != nil {
			rx.Instructions = *req.Instructions
		}
		if req.FollowUpDate != nil {
			rx.FollowUpDate = *req.FollowUpDate
		}
		return nil
	})
}

// SetStatus moves an active prescription to completed or cancelled.
func (s *Service) SetStatus(ctx context.Context, id string, to Status) (*Prescription, error) {
	if to != StatusCompleted && to != StatusCancelled {
		return nil, validate.Field("status", "must be one of completed cancelled")
	}
	return s.modify(ctx, id, func(rx *Prescription) error {
		if rx.Status != StatusActive {
			return fmt.Errorf("%s -> %s: %w", rx.Status, to, ErrInvalidTransition)
		}
		rx.Status = to
		return nil
	})
}

func (s *Service) modify(ctx context.Context, id string, fn func(*Prescription) error) (*Prescription, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	rx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(rx); err != nil {
		return nil, err
	}
	rx.UpdatedAt = s.now()
	if err := s.store.Put(ctx, id, rx); err != nil {
		return nil, fmt.Errorf("save prescription: %w", err)
	}
	return rx, nil
}

// Delete removes the prescription for good.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*Prescription, error) {
	return s.list(ctx, func(rx *Prescription) bool { return rx.PatientID == patientID })
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID string) ([]*Prescription, error) {
	return s.list(ctx, func(rx *Prescription) bool { return rx.DoctorID == doctorID })
}

func (s *Service) ListByAppointment(ctx context.Context, appointmentID string) ([]*Prescription, error) {
	return s.list(ctx, func(rx *Prescription) bool { return rx.AppointmentID == appointmentID })
}

func (s *Service) list(ctx context.Context, keep func(*Prescription) bool) ([]*Prescription, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Prescription, 0, len(all))
	for _, rx := range all {
		if keep(rx) {
			out = append(out, rx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
