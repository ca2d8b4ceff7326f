package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/domain/doctor"
	"github.com/medibook/medibook/internal/platform/keylock"
	"github.com/medibook/medibook/internal/platform/overlay"
	"github.com/medibook/medibook/internal/platform/validate"
)

type AppointmentGetter interface {
	Get(ctx context.Context, id string) (*appointment.Appointment, error)
}

type RatingSink interface {
	ApplyRating(ctx context.Context, doctorID string, rating int) (*doctor.Doctor, error)
}

type Service struct {
	reviews *overlay.Collection[Review]
	appts   AppointmentGetter
	ratings RatingSink
	locks   *keylock.Locker
	now     func() time.Time
}

func NewService(store overlay.Store, appts AppointmentGetter, ratings RatingSink) *Service {
	return &Service{
		reviews: overlay.NewCollection[Review](store, "reviews"),
		appts:   appts,
		ratings: ratings,
		locks:   keylock.New(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create records a patient's review of a completed consultation and folds the
// rating into the doctor's average. Each appointment takes one review.
func (s *Service) Create(ctx context.Context, patientID string, req CreateRequest) (*Review, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	appt, err := s.appts.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, ErrNotParticipant
	}
	if req.DoctorID != "" && req.DoctorID != appt.DoctorID {
		return nil, validate.Field("doctorId", "does not match the appointment")
	}
	if appt.Status != appointment.StatusCompleted {
		return nil, fmt.Errorf("appointment is %s: %w", appt.Status, ErrNotReviewable)
	}

	unlock := s.locks.Lock(appt.ID)
	defer unlock()

	existing, err := s.reviews.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	for _, r := range existing {
		if r.AppointmentID == appt.ID {
			return nil, ErrAlreadyReviewed
		}
	}

	r := &Review{
		ID:            uuid.NewString(),
		DoctorID:      appt.DoctorID,
		PatientID:     patientID,
		PatientName:   appt.PatientName,
		AppointmentID: appt.ID,
		Rating:        req.Rating,
		Comment:       req.Comment,
		CreatedAt:     s.now(),
	}
	if err := s.reviews.Put(ctx, r.ID, r); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}
	if _, err := s.ratings.ApplyRating(ctx, appt.DoctorID, req.Rating); err != nil {
		// Drop the review so the patient can submit it again.
		if derr := s.reviews.Delete(ctx, r.ID); derr != nil {
			err = errors.Join(err, fmt.Errorf("roll back review %s: %w", r.ID, derr))
		}
		return nil, fmt.Errorf("update doctor rating: %w", err)
	}
	return r, nil
}

// ListByDoctor returns the doctor's reviews, newest first.
func (s *Service) ListByDoctor(ctx context.Context, doctorID string) ([]*Review, error) {
	all, err := s.reviews.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Review, 0, len(all))
	for _, r := range all {
		if r.DoctorID == doctorID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
