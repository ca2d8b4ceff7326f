package appointment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/medibook/medibook/internal/platform/remote"
)

// RemoteRepository talks to the upstream appointments API.
type RemoteRepository struct {
	client *remote.Client
}

func NewRemoteRepository(client *remote.Client) *RemoteRepository {
	return &RemoteRepository{client: client}
}

func (r *RemoteRepository) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	q := url.Values{}
	if f.DoctorID != "" {
		q.Set("doctorId", f.DoctorID)
	}
	if f.PatientID != "" {
		q.Set("patientId", f.PatientID)
	}
	var list []*Appointment
	if err := r.client.Do(ctx, http.MethodGet, "/appointments", q, nil, &list); err != nil {
		return nil, mapRemoteErr(err)
	}
	// The upstream only filters by doctor and patient.
	out := make([]*Appointment, 0, len(list))
	for _, a := range list {
		if a != nil && f.Matches(a) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (r *RemoteRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	var a Appointment
	if err := r.client.Do(ctx, http.MethodGet, "/appointments/"+url.PathEscape(id), nil, nil, &a); err != nil {
		return nil, mapRemoteErr(err)
	}
	return &a, nil
}

func (r *RemoteRepository) Append(ctx context.Context, a *Appointment) (*Appointment, error) {
	var created Appointment
	if err := r.client.Do(ctx, http.MethodPost, "/appointments", nil, a, &created); err != nil {
		return nil, mapRemoteErr(err)
	}
	return &created, nil
}

func (r *RemoteRepository) Mutate(ctx context.Context, id string, p Patch) (*Appointment, error) {
	var updated Appointment
	if err := r.client.Do(ctx, http.MethodPatch, "/appointments/"+url.PathEscape(id), nil, p, &updated); err != nil {
		return nil, mapRemoteErr(err)
	}
	return &updated, nil
}

func mapRemoteErr(err error) error {
	switch {
	case errors.Is(err, remote.ErrUnreachable):
		return err
	case remote.IsStatus(err, http.StatusNotFound):
		return ErrNotFound
	case remote.IsStatus(err, http.StatusConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
