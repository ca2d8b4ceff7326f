package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/platform/validate"
)

const (
	OutcomeBooked    = "booked"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Booker is the part of the lifecycle manager checkout needs.
type Booker interface {
	AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error)
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
}

// OutcomeRecorder counts pipeline runs; telemetry.Metrics implements it.
type OutcomeRecorder interface {
	RecordPayment(outcome string)
}

type Request struct {
	appointment.BookingRequest
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=card upi netbanking wallet"`
}

type Service struct {
	pipeline *Pipeline
	booker   Booker
	recorder OutcomeRecorder
	logger   zerolog.Logger
}

func NewService(pipeline *Pipeline, booker Booker, recorder OutcomeRecorder, logger zerolog.Logger) *Service {
	return &Service{pipeline: pipeline, booker: booker, recorder: recorder, logger: logger}
}

func (s *Service) Pipeline() *Pipeline { return s.pipeline }

// Checkout validates the request, refuses slots that are already gone, runs
// the payment pipeline and books on completion. A cancelled ctx stops the
// pipeline and nothing is booked.
func (s *Service) Checkout(ctx context.Context, req Request, onProgress func(Progress)) (*appointment.Appointment, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	free, err := s.booker.AvailableSlots(ctx, req.DoctorID, req.Date)
	if err != nil {
		return nil, err
	}
	if !contains(free, req.TimeSlot) {
		return nil, fmt.Errorf("%s on %s: %w", req.TimeSlot, req.Date, appointment.ErrConflict)
	}

	log := s.logger.With().
		Str("doctor_id", req.DoctorID).
		Str("patient_id", req.PatientID).
		Str("date", req.Date).
		Str("time_slot", req.TimeSlot).
		Logger()

	if err := s.pipeline.Run(ctx, onProgress); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Info().Err(err).Msg("checkout cancelled")
			s.record(OutcomeCancelled)
		} else {
			s.record(OutcomeFailed)
		}
		return nil, err
	}

	booked, err := s.booker.Book(ctx, req.BookingRequest)
	if err != nil {
		log.Warn().Err(err).Msg("payment simulated but booking failed")
		s.record(OutcomeFailed)
		return nil, err
	}
	log.Info().Str("appointment_id", booked.ID).Str("payment_method", req.PaymentMethod).Msg("checkout complete")
	s.record(OutcomeBooked)
	return booked, nil
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordPayment(outcome)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
