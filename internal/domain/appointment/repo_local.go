package appointment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/medibook/internal/platform/keylock"
	"github.com/medibook/medibook/internal/platform/overlay"
)

const overlayCollection = "appointments"

// LocalRepository serves the seeded mock appointments merged with the
// persisted overlay. Overlay records win over seed records with the same id.
// Each repository owns its own copy of the seed.
type LocalRepository struct {
	mu      sync.RWMutex
	seed    map[string]*Appointment
	overlay *overlay.Collection[Appointment]
	locks   *keylock.Locker
	latency time.Duration
	now     func() time.Time
	newID   func() string
}

type LocalOption func(*LocalRepository)

// WithLatency delays every call, standing in for a slow network store.
func WithLatency(d time.Duration) LocalOption {
	return func(r *LocalRepository) { r.latency = d }
}

func WithClock(now func() time.Time) LocalOption {
	return func(r *LocalRepository) { r.now = now }
}

func WithIDGenerator(fn func() string) LocalOption {
	return func(r *LocalRepository) { r.newID = fn }
}

func NewLocalRepository(store overlay.Store, seed []*Appointment, opts ...LocalOption) *LocalRepository {
	r := &LocalRepository{
		seed:    make(map[string]*Appointment, len(seed)),
		overlay: overlay.NewCollection[Appointment](store, overlayCollection),
		locks:   keylock.New(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, a := range seed {
		r.seed[a.ID] = a.Clone()
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *LocalRepository) wait(ctx context.Context) error {
	if r.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *LocalRepository) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	stored, err := r.overlay.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	merged := make(map[string]*Appointment, len(stored))
	r.mu.RLock()
	for id, a := range r.seed {
		merged[id] = a
	}
	r.mu.RUnlock()
	for _, a := range stored {
		merged[a.ID] = a
	}

	out := make([]*Appointment, 0, len(merged))
	for _, a := range merged {
		if f.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	sortAppointments(out)
	return out, nil
}

func (r *LocalRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

func (r *LocalRepository) get(ctx context.Context, id string) (*Appointment, error) {
	a, err := r.overlay.Get(ctx, id)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, overlay.ErrNotFound) {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.seed[id]; ok {
		return s.Clone(), nil
	}
	return nil, ErrNotFound
}

func (r *LocalRepository) Append(ctx context.Context, a *Appointment) (*Appointment, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	rec := a.Clone()
	if rec.ID == "" {
		rec.ID = r.newID()
	}
	unlock := r.locks.Lock(rec.ID)
	defer unlock()

	if _, err := r.get(ctx, rec.ID); err == nil {
		return nil, fmt.Errorf("appointment %s already exists: %w", rec.ID, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := r.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := r.overlay.Put(ctx, rec.ID, rec); err != nil {
		return nil, fmt.Errorf("append appointment: %w", err)
	}
	return rec.Clone(), nil
}

func (r *LocalRepository) Mutate(ctx context.Context, id string, p Patch) (*Appointment, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(id)
	defer unlock()

	cur, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Apply(cur)
	cur.UpdatedAt = r.now()

	if err := r.overlay.Put(ctx, id, cur); err != nil {
		return nil, fmt.Errorf("mutate appointment %s: %w", id, err)
	}
	r.mu.Lock()
	if _, ok := r.seed[id]; ok {
		r.seed[id] = cur.Clone()
	}
	r.mu.Unlock()
	return cur.Clone(), nil
}

// sortAppointments orders by date, then creation time, then id.
func sortAppointments(list []*Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
