// Package ringbuf provides a fixed-capacity FIFO that evicts its oldest entry
// when full. It is not safe for concurrent use; callers own the locking.
package ringbuf

// Ring is a bounded buffer of T.
type Ring[T any] struct {
	buf   []T
	head  int // index of the oldest entry
	count int
}

// New returns an empty ring holding at most capacity entries.
// A non-positive capacity is treated as 1.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when the ring is full.
// It reports whether an entry was evicted.
func (r *Ring[T]) Push(v T) bool {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return false
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	return true
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the maximum number of entries.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Newest returns up to n entries ordered newest first.
// n <= 0 returns every entry.
func (r *Ring[T]) Newest(n int) []T {
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.buf[(r.head+r.count-1-i)%len(r.buf)])
	}
	return out
}

// All returns every entry ordered oldest first.
func (r *Ring[T]) All() []T {
	out := make([]T, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}
