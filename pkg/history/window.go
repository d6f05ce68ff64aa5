package history

// Window is a bounded FIFO buffer of the most recent samples.
// Appending to a full window evicts the oldest sample.
// not thread-safe
type Window[T any] struct {
	samples  []T
	capacity int
}

func NewWindow[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{
		samples:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

func (w *Window[T]) Append(sample T) {
	if len(w.samples) == w.capacity {
		// shift in place to keep the backing array bounded
		copy(w.samples, w.samples[1:])
		w.samples[len(w.samples)-1] = sample
		return
	}
	w.samples = append(w.samples, sample)
}

// Samples returns a copy of the window contents, oldest first.
func (w *Window[T]) Samples() []T {
	out := make([]T, len(w.samples))
	copy(out, w.samples)
	return out
}

// Last returns the most recent sample.
func (w *Window[T]) Last() (T, bool) {
	var zero T
	if len(w.samples) == 0 {
		return zero, false
	}
	return w.samples[len(w.samples)-1], true
}

func (w *Window[T]) Len() int {
	return len(w.samples)
}

func (w *Window[T]) Cap() int {
	return w.capacity
}

func (w *Window[T]) Full() bool {
	return len(w.samples) == w.capacity
}
