// Package repository defines the event store interface and errors.
package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithCapacity pre-sizes the store for n events.
func WithCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithFirstID sets the id handed to the first inserted event.
func WithFirstID(id int64) Option {
	return func(s *MemoryStore) {
		if id > 0 {
			s.nextID = id
		}
	}
}
