// Package repository defines the event store interface and errors.
package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/pkg/metrics"
)

const defaultCapacity = 64

// In-memory, ordered Store implementation.
//
// Ordering: insertion order. Ids come from a counter that only moves
// forward, so an id is never handed out twice even after deletes. The
// counter bump and the append happen under one lock.

// MemoryStore keeps events in an id-indexed map plus an order slice.
type MemoryStore struct {
	mu       sync.RWMutex
	order    []int64
	byID     map[int64]model.Event
	nextID   int64
	capacity int
}

// NewMemoryStore constructs an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		nextID:   1,
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.order = make([]int64, 0, s.capacity)
	s.byID = make(map[int64]model.Event, s.capacity)

	metrics.UpdateStoredEvents(0)
	return s
}

// Insert implements Store.Insert.
func (s *MemoryStore) Insert(ctx context.Context, e model.Event) (model.Event, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if e.ID != 0 {
		metrics.RecordErrorByComponent("repository", "has_id")
		return model.Event{}, ErrHasID
	}

	s.mu.Lock()
	e.ID = s.nextID
	s.nextID++
	s.byID[e.ID] = e
	s.order = append(s.order, e.ID)
	count := len(s.order)
	s.mu.Unlock()

	metrics.UpdateStoredEvents(count)
	return e, nil
}

// Find implements Store.Find with a map lookup.
func (s *MemoryStore) Find(ctx context.Context, id int64) (model.Event, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Event{}, ErrNotFound
	}
	return e, nil
}

// Update implements Store.Update. mutate runs under the write lock and
// must not call back into the store.
func (s *MemoryStore) Update(ctx context.Context, id int64, mutate MutateFunc) (model.Event, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Event{}, ErrNotFound
	}
	next, err := mutate(current)
	if err != nil {
		return current, err
	}
	next.ID = id
	s.byID[id] = next
	return next, nil
}

// Delete implements Store.Delete. Deleting an unknown id is a no-op.
func (s *MemoryStore) Delete(ctx context.Context, id int64) bool {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.byID, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	count := len(s.order)
	s.mu.Unlock()

	metrics.UpdateStoredEvents(count)
	return true
}

// List returns a copy of every event in insertion order.
func (s *MemoryStore) List(ctx context.Context) []model.Event {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Count returns the number of stored events.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// NextID returns the id the next Insert will assign.
func (s *MemoryStore) NextID(ctx context.Context) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}
