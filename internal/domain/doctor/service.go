package doctor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/platform/keylock"
	"github.com/medibook/medibook/internal/platform/validate"
)

// AppointmentLister is satisfied by appointment.Service.
type AppointmentLister interface {
	List(ctx context.Context, f appointment.Filter) ([]*appointment.Appointment, error)
}

type Service struct {
	repo  Repository
	appts AppointmentLister
	locks *keylock.Locker
	now   func() time.Time
}

func NewService(repo Repository, appts AppointmentLister) *Service {
	return &Service{
		repo:  repo,
		appts: appts,
		locks: keylock.New(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetAppointments wires the appointment book after construction; the
// appointment service itself depends on this directory for fees.
func (s *Service) SetAppointments(appts AppointmentLister) { s.appts = appts }

func (s *Service) List(ctx context.Context, f Filter) ([]*Doctor, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]*Doctor, 0, len(all))
	for _, d := range all {
		if f.Specialization != "" && !strings.EqualFold(d.Specialization, f.Specialization) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(d.Name), q) &&
			!strings.Contains(strings.ToLower(d.Specialization), q) {
			continue
		}
		if f.ConsultationType != "" && !offers(d, f.ConsultationType) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func offers(d *Doctor, kind string) bool {
	for _, t := range d.ConsultationTypes {
		if t == kind {
			return true
		}
	}
	return false
}

func (s *Service) Get(ctx context.Context, id string) (*Doctor, error) {
	return s.repo.Get(ctx, id)
}

// Exists reports whether id names a doctor profile.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConsultationFee implements appointment.DoctorDirectory.
func (s *Service) ConsultationFee(ctx context.Context, id string) (int, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("doctor %s: %w", id, err)
	}
	return d.ConsultationFee, nil
}

// Stats loads the doctor and their appointments concurrently.
func (s *Service) Stats(ctx context.Context, id string) (*Stats, error) {
	var (
		doc   *Doctor
		appts []*appointment.Appointment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		doc, err = s.repo.Get(gctx, id)
		return err
	})
	if s.appts != nil {
		g.Go(func() error {
			var err error
			appts, err = s.appts.List(gctx, appointment.Filter{DoctorID: id})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	today := s.now().Format(validate.DateLayout)
	st := &Stats{DoctorID: id, Rating: doc.Rating, ReviewCount: doc.ReviewCount}
	patients := make(map[string]struct{})
	for _, a := range appts {
		st.TotalAppointments++
		patients[a.PatientID] = struct{}{}
		switch a.Status {
		case appointment.StatusScheduled:
			st.Scheduled++
		case appointment.StatusCompleted:
			st.Completed++
			st.Revenue += a.ConsultationFee
		case appointment.StatusCancelled:
			st.Cancelled++
		case appointment.StatusRescheduled:
			st.Rescheduled++
		}
		if !a.Status.Open() {
			continue
		}
		switch {
		case a.Date == today:
			st.Today++
		case a.Date > today:
			st.Upcoming++
		}
	}
	st.DistinctPatients = len(patients)
	return st, nil
}

// ApplyRating folds one new review into the doctor's running average.
func (s *Service) ApplyRating(ctx context.Context, id string, rating int) (*Doctor, error) {
	if rating < 1 || rating > 5 {
		return nil, validate.Field("rating", "must be between 1 and 5")
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := d.Rating*float64(d.ReviewCount) + float64(rating)
	d.ReviewCount++
	d.Rating = math.Round(sum/float64(d.ReviewCount)*10) / 10
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	return d, nil
}
