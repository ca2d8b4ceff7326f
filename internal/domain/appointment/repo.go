package appointment

import "context"

// Repository is the appointment store contract. Every implementation returns
// copies; mutating a returned record never changes stored state.
type Repository interface {
	List(ctx context.Context, f Filter) ([]*Appointment, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	// Append stores a new record, assigning an id when a.ID is empty and
	// stamping CreatedAt and UpdatedAt.
	Append(ctx context.Context, a *Appointment) (*Appointment, error)
	// Mutate merges p into the record and refreshes UpdatedAt. Unknown ids
	// return ErrNotFound.
	Mutate(ctx context.Context, id string, p Patch) (*Appointment, error)
}
