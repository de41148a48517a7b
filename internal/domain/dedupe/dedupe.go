// Package dedupe remembers which iCalendar UIDs have already been imported.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultCapacity = 10_000

// Recorder tracks imported UIDs so that uploading the same calendar twice
// does not create duplicate events.
type Recorder interface {
	// SeenAndRecord reports whether uid was already recorded and records it
	// if not. The check and the insert are one atomic step.
	SeenAndRecord(ctx context.Context, uid string) bool

	// Forget drops uid so a later upload may import it again. Used when the
	// event carrying uid was rejected.
	Forget(ctx context.Context, uid string)

	Size() int
}

// memoryRecorder keeps at most capacity UIDs, evicting the oldest first.
// capacity <= 0 means unbounded.
type memoryRecorder struct {
	mu       sync.Mutex
	order    *list.List
	index    map[string]*list.Element
	capacity int
}

// NewMemoryRecorder creates an in-memory Recorder.
func NewMemoryRecorder(opts ...Option) Recorder {
	r := &memoryRecorder{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(r)
	}
	r.order = list.New()
	r.index = make(map[string]*list.Element)
	return r
}

func (r *memoryRecorder) SeenAndRecord(_ context.Context, uid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[uid]; ok {
		return true
	}
	if r.capacity > 0 && r.order.Len() >= r.capacity {
		oldest := r.order.Front()
		r.order.Remove(oldest)
		delete(r.index, oldest.Value.(string))
	}
	r.index[uid] = r.order.PushBack(uid)
	return false
}

func (r *memoryRecorder) Forget(_ context.Context, uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.index[uid]; ok {
		r.order.Remove(el)
		delete(r.index, uid)
	}
}

func (r *memoryRecorder) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
