// Package history assembles a patient's appointments and prescriptions into
// a single timeline.
package history

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/domain/prescription"
	"github.com/medibook/medibook/internal/platform/validate"
)

var ErrPatientNotFound = errors.New("patient not found")

const (
	KindAppointment  = "appointment"
	KindPrescription = "prescription"
)

type AppointmentLister interface {
	List(ctx context.Context, f appointment.Filter) ([]*appointment.Appointment, error)
}

type PrescriptionLister interface {
	ListByPatient(ctx context.Context, patientID string) ([]*prescription.Prescription, error)
}

type PatientDirectory interface {
	PatientExists(ctx context.Context, id string) (bool, error)
}

// Entry is one timeline item. Exactly one of Appointment and Prescription is set.
type Entry struct {
	Kind         string                     `json:"kind"`
	Date         string                     `json:"date"`
	CreatedAt    time.Time                  `json:"createdAt"`
	Appointment  *appointment.Appointment   `json:"appointment,omitempty"`
	Prescription *prescription.Prescription `json:"prescription,omitempty"`
}

type Timeline struct {
	PatientID string  `json:"patientId"`
	StartDate string  `json:"startDate,omitempty"`
	EndDate   string  `json:"endDate,omitempty"`
	Entries   []Entry `json:"entries"`
}

type Service struct {
	appts    AppointmentLister
	rx       PrescriptionLister
	patients PatientDirectory
}

func NewService(appts AppointmentLister, rx PrescriptionLister, patients PatientDirectory) *Service {
	return &Service{appts: appts, rx: rx, patients: patients}
}

// ForPatient returns the patient's history between start and end inclusive,
// most recent first. Either bound may be empty.
func (s *Service) ForPatient(ctx context.Context, patientID, start, end string) (*Timeline, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	ok, err := s.patients.PatientExists(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPatientNotFound
	}

	var (
		appts []*appointment.Appointment
		rxs   []*prescription.Prescription
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		appts, err = s.appts.List(gctx, appointment.Filter{PatientID: patientID})
		return err
	})
	g.Go(func() error {
		var err error
		rxs, err = s.rx.ListByPatient(gctx, patientID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(appts)+len(rxs))
	for _, a := range appts {
		if inRange(a.Date, start, end) {
			entries = append(entries, Entry{Kind: KindAppointment, Date: a.Date, CreatedAt: a.CreatedAt, Appointment: a})
		}
	}
	for _, p := range rxs {
		if inRange(p.AppointmentDate, start, end) {
			entries = append(entries, Entry{Kind: KindPrescription, Date: p.AppointmentDate, CreatedAt: p.CreatedAt, Prescription: p})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return &Timeline{PatientID: patientID, StartDate: start, EndDate: end, Entries: entries}, nil
}

// ISO dates compare correctly as strings.
func inRange(date, start, end string) bool {
	if start != "" && date < start {
		return false
	}
	if end != "" && date > end {
		return false
	}
	return true
}

func checkRange(start, end string) error {
	for _, b := range [][2]string{{"startDate", start}, {"endDate", end}} {
		if b[1] == "" {
			continue
		}
		if _, err := time.Parse(validate.DateLayout, b[1]); err != nil {
			return validate.Field(b[0], "must be a date in YYYY-MM-DD format")
		}
	}
	if start != "" && end != "" && start > end {
		return validate.Field("endDate", "must not be before startDate")
	}
	return nil
}
