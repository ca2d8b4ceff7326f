package appointment

import (
	"context"
	"errors"

	"github.com/medibook/medibook/internal/platform/remote"
)

// FallbackRepository prefers the remote store and serves from the local one
// whenever the remote is unreachable. Records written locally during an
// outage stay local; lookups that miss remotely are retried locally so they
// remain reachable.
type FallbackRepository struct {
	primary   Repository
	secondary Repository
	policy    remote.Fallback
}

func NewFallbackRepository(primary, secondary Repository, policy remote.Fallback) *FallbackRepository {
	if policy.Resource == "" {
		policy.Resource = "appointments"
	}
	return &FallbackRepository{primary: primary, secondary: secondary, policy: policy}
}

func (r *FallbackRepository) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	return remote.Do(ctx, r.policy, "list",
		func(ctx context.Context) ([]*Appointment, error) { return r.primary.List(ctx, f) },
		func(ctx context.Context) ([]*Appointment, error) { return r.secondary.List(ctx, f) },
	)
}

func (r *FallbackRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	a, err := remote.Do(ctx, r.policy, "get",
		func(ctx context.Context) (*Appointment, error) { return r.primary.Get(ctx, id) },
		func(ctx context.Context) (*Appointment, error) { return r.secondary.Get(ctx, id) },
	)
	if errors.Is(err, ErrNotFound) {
		return r.secondary.Get(ctx, id)
	}
	return a, err
}

func (r *FallbackRepository) Append(ctx context.Context, a *Appointment) (*Appointment, error) {
	return remote.Do(ctx, r.policy, "append",
		func(ctx context.Context) (*Appointment, error) { return r.primary.Append(ctx, a) },
		func(ctx context.Context) (*Appointment, error) { return r.secondary.Append(ctx, a) },
	)
}

func (r *FallbackRepository) Mutate(ctx context.Context, id string, p Patch) (*Appointment, error) {
	a, err := remote.Do(ctx, r.policy, "mutate",
		func(ctx context.Context) (*Appointment, error) { return r.primary.Mutate(ctx, id, p) },
		func(ctx context.Context) (*Appointment, error) { return r.secondary.Mutate(ctx, id, p) },
	)
	if errors.Is(err, ErrNotFound) {
		return r.secondary.Mutate(ctx, id, p)
	}
	return a, err
}
