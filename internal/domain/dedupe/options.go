package dedupe

// Option configures a memory Recorder.
type Option func(*memoryRecorder)

// WithCapacity bounds how many UIDs are remembered. Values <= 0 disable the
// bound.
func WithCapacity(n int) Option {
	return func(r *memoryRecorder) {
		r.capacity = n
	}
}
