// Package repository defines the event store interface and errors.
package repository

import (
	"context"

	"github.com/okian/drcal/internal/domain/model"
)

// MutateFunc receives the stored event and returns its replacement. A
// non-nil error aborts the update and leaves the store untouched.
type MutateFunc func(current model.Event) (model.Event, error)

// Store provides read/write access to the ordered event collection.
type Store interface {
	// Insert assigns the next id to e, appends it and returns the stored copy.
	Insert(ctx context.Context, e model.Event) (model.Event, error)

	// Find returns the event with id.
	// Returns ErrNotFound if the id is unknown.
	Find(ctx context.Context, id int64) (model.Event, error)

	// Update replaces the event with id by mutate's result, in place.
	// The replacement keeps the stored id.
	Update(ctx context.Context, id int64, mutate MutateFunc) (model.Event, error)

	// Delete removes the event with id and reports whether it existed.
	Delete(ctx context.Context, id int64) bool

	// List returns every event in insertion order.
	List(ctx context.Context) []model.Event

	// Count returns the number of stored events.
	Count(ctx context.Context) int
}
