// Package ringbuf provides a fixed-capacity FIFO ring buffer used for the
// bounded session-history and feedback-history retention windows. When the
// buffer is full the oldest entry is silently dropped.
package ringbuf

import "sync"

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 64

// Ring is a fixed-capacity, thread-safe circular buffer.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	head  int // index of oldest item
	count int // number of items currently stored
	cap   int // maximum capacity
}

// New creates a Ring with the given capacity. If capacity is <= 0,
// DefaultCapacity is used.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring[T]{
		items: make([]T, capacity),
		cap:   capacity,
	}
}

// Push adds an item. If the ring is full, the oldest item is dropped.
func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	writeIdx := (r.head + r.count) % r.cap
	r.items[writeIdx] = item

	if r.count == r.cap {
		r.head = (r.head + 1) % r.cap
	} else {
		r.count++
	}
}

// Items returns a copy of the retained items in FIFO order (oldest
// first) without modifying the ring.
func (r *Ring[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.items[(r.head+i)%r.cap]
	}
	return out
}

// Replace clears the ring and refills it from items in order. If items
// exceeds the capacity only the most recent entries are kept.
func (r *Ring[T]) Replace(items []T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.head = 0
	r.count = 0
	start := 0
	if len(items) > r.cap {
		start = len(items) - r.cap
	}
	for _, it := range items[start:] {
		r.items[r.count] = it
		r.count++
	}
}

// Len returns the number of items currently retained.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the maximum capacity.
func (r *Ring[T]) Cap() int { return r.cap }
