package doctor

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/medibook/medibook/internal/platform/overlay"
)

// LocalRepository serves the seeded directory with overlay edits on top.
type LocalRepository struct {
	seed    map[string]*Doctor
	overlay *overlay.Collection[Doctor]
}

func NewLocalRepository(store overlay.Store, seed []*Doctor) *LocalRepository {
	r := &LocalRepository{
		seed:    make(map[string]*Doctor, len(seed)),
		overlay: overlay.NewCollection[Doctor](store, "doctors"),
	}
	for _, d := range seed {
		r.seed[d.ID] = d.Clone()
	}
	return r
}

func (r *LocalRepository) List(ctx context.Context) ([]*Doctor, error) {
	stored, err := r.overlay.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	merged := make(map[string]*Doctor, len(r.seed)+len(stored))
	for id, d := range r.seed {
		merged[id] = d
	}
	for _, d := range stored {
		merged[d.ID] = d
	}
	out := make([]*Doctor, 0, len(merged))
	for _, d := range merged {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LocalRepository) Get(ctx context.Context, id string) (*Doctor, error) {
	d, err := r.overlay.Get(ctx, id)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, overlay.ErrNotFound) {
		return nil, fmt.Errorf("get doctor %s: %w", id, err)
	}
	if s, ok := r.seed[id]; ok {
		return s.Clone(), nil
	}
	return nil, ErrNotFound
}

func (r *LocalRepository) Save(ctx context.Context, d *Doctor) error {
	return r.overlay.Put(ctx, d.ID, d)
}
