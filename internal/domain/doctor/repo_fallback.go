package doctor

import (
	"context"

	"github.com/medibook/medibook/internal/platform/remote"
)

// FallbackRepository reads from the remote directory and falls back to the
// local one while the remote is unreachable.
type FallbackRepository struct {
	primary   Repository
	secondary Repository
	policy    remote.Fallback
}

func NewFallbackRepository(primary, secondary Repository, policy remote.Fallback) *FallbackRepository {
	if policy.Resource == "" {
		policy.Resource = "doctors"
	}
	return &FallbackRepository{primary: primary, secondary: secondary, policy: policy}
}

func (r *FallbackRepository) List(ctx context.Context) ([]*Doctor, error) {
	return remote.Do(ctx, r.policy, "list", r.primary.List, r.secondary.List)
}

func (r *FallbackRepository) Get(ctx context.Context, id string) (*Doctor, error) {
	return remote.Do(ctx, r.policy, "get",
		func(ctx context.Context) (*Doctor, error) { return r.primary.Get(ctx, id) },
		func(ctx context.Context) (*Doctor, error) { return r.secondary.Get(ctx, id) },
	)
}

func (r *FallbackRepository) Save(ctx context.Context, d *Doctor) error {
	_, err := remote.Do(ctx, r.policy, "save",
		func(ctx context.Context) (struct{}, error) { return struct{}{}, r.primary.Save(ctx, d) },
		func(ctx context.Context) (struct{}, error) { return struct{}{}, r.secondary.Save(ctx, d) },
	)
	return err
}
