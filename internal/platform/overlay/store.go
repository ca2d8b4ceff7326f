// Package overlay persists the locally owned records that sit on top of the
// seeded mock data. Records are stored one per (collection, id) so writers on
// different records never overwrite each other.
package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a (collection, id) pair has no record.
var ErrNotFound = errors.New("overlay: record not found")

// Store is the raw per-record storage contract shared by every backend.
type Store interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Put(ctx context.Context, collection, id string, data []byte) error
	Delete(ctx context.Context, collection, id string) error
	// List returns every record of a collection ordered by id.
	List(ctx context.Context, collection string) ([][]byte, error)
}

// Collection is a typed JSON view over one named collection of a Store.
type Collection[T any] struct {
	store Store
	name  string
}

func NewCollection[T any](store Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}
	return &v, nil
}

func (c *Collection[T]) Put(ctx context.Context, id string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	return c.store.Put(ctx, c.name, id, raw)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// All decodes every record. A corrupted record fails the whole call; the
// overlay is never repaired silently.
func (c *Collection[T]) All(ctx context.Context) ([]*T, error) {
	raws, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", c.name, err)
		}
		out = append(out, &v)
	}
	return out, nil
}
