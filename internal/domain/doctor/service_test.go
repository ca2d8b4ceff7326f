package doctor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/platform/overlay"
	"github.com/medibook/medibook/internal/platform/remote"
	"github.com/medibook/medibook/internal/platform/validate"
)

type fixedAppointments []*appointment.Appointment

func (f fixedAppointments) List(_ context.Context, flt appointment.Filter) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	for _, a := range f {
		if flt.Matches(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func newTestService(appts AppointmentLister) *Service {
	return NewService(NewLocalRepository(overlay.NewMemoryStore(), SeedDoctors()), appts)
}

func TestList_Filters(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 6)
	assert.Equal(t, "doc-1", all[0].ID)

	cardio, err := svc.List(ctx, Filter{Specialization: "cardiology"})
	require.NoError(t, err)
	require.Len(t, cardio, 1)
	assert.Equal(t, "Dr. Priya Menon", cardio[0].Name)

	byName, err := svc.List(ctx, Filter{Query: "rao"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "doc-3", byName[0].ID)

	offline, err := svc.List(ctx, Filter{ConsultationType: "offline"})
	require.NoError(t, err)
	for _, d := range offline {
		assert.NotEqual(t, "doc-3", d.ID)
	}
}

func TestGet_Unknown(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.Get(context.Background(), "doc-404")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, appointment.ErrDoctorNotFound)

	_, err = svc.ConsultationFee(context.Background(), "doc-404")
	assert.ErrorIs(t, err, appointment.ErrDoctorNotFound)

	fee, err := svc.ConsultationFee(context.Background(), "doc-2")
	require.NoError(t, err)
	assert.Equal(t, 600, fee)

	ok, err := svc.Exists(context.Background(), "doc-2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Exists(context.Background(), "doc-404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	appts := fixedAppointments{
		{ID: "1", DoctorID: "doc-1", PatientID: "p1", Date: "2025-03-01", Status: appointment.StatusCompleted, ConsultationFee: 800},
		{ID: "2", DoctorID: "doc-1", PatientID: "p1", Date: "2025-03-05", Status: appointment.StatusCompleted, ConsultationFee: 800},
		{ID: "3", DoctorID: "doc-1", PatientID: "p2", Date: "2025-03-10", Status: appointment.StatusScheduled},
		{ID: "4", DoctorID: "doc-1", PatientID: "p3", Date: "2025-03-12", Status: appointment.StatusRescheduled},
		{ID: "5", DoctorID: "doc-1", PatientID: "p3", Date: "2025-03-12", Status: appointment.StatusCancelled},
		{ID: "6", DoctorID: "doc-2", PatientID: "p9", Date: "2025-03-10", Status: appointment.StatusScheduled},
	}
	svc := newTestService(appts)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

	st, err := svc.Stats(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, &Stats{
		DoctorID: "doc-1", TotalAppointments: 5, Scheduled: 1, Completed: 2, Cancelled: 1, Rescheduled: 1,
		DistinctPatients: 3, Revenue: 1600, Today: 1, Upcoming: 1, Rating: 4.8, ReviewCount: 126,
	}, st)

	_, err = svc.Stats(context.Background(), "doc-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyRating(t *testing.T) {
	repo := NewLocalRepository(overlay.NewMemoryStore(), []*Doctor{{ID: "d", Rating: 4.0, ReviewCount: 3}})
	svc := NewService(repo, nil)
	ctx := context.Background()

	d, err := svc.ApplyRating(ctx, "d", 5)
	require.NoError(t, err)
	assert.Equal(t, 4, d.ReviewCount)
	assert.Equal(t, 4.3, d.Rating)

	stored, err := svc.Get(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 4.3, stored.Rating)

	_, err = svc.ApplyRating(ctx, "d", 6)
	assert.True(t, validate.IsValidation(err))
}

func TestApplyRating_ConcurrentReviewsAllCount(t *testing.T) {
	repo := NewLocalRepository(overlay.NewMemoryStore(), []*Doctor{{ID: "d"}})
	svc := NewService(repo, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyRating(context.Background(), "d", 4)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	d, err := svc.Get(context.Background(), "d")
	require.NoError(t, err)
	assert.Equal(t, 10, d.ReviewCount)
	assert.Equal(t, 4.0, d.Rating)
}

func TestFallbackRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/doctors" {
			_ = json.NewEncoder(w).Encode([]Doctor{{ID: "remote-1", Name: "Dr. Remote"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	local := NewLocalRepository(overlay.NewMemoryStore(), SeedDoctors())
	repo := NewFallbackRepository(NewRemoteRepository(remote.NewClient(srv.URL, time.Second)), local,
		remote.Fallback{Logger: zerolog.Nop()})
	ctx := context.Background()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "remote-1", list[0].ID)

	_, err = repo.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)

	srv.Close()
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 6)
}
