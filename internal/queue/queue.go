// Package queue provides the batching buffer used by the relational storage
// writers.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO buffer that hands out its contents in
// batches.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue and returns the resulting length.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	return len(q.items)
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns up to max items from the front of the queue.
// A max of zero or less drains everything.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if max <= 0 || max >= len(q.items) {
		result := q.items
		q.items = make([]T, 0, cap(q.items))
		return result
	}
	result := make([]T, max)
	copy(result, q.items[:max])
	q.items = append(q.items[:0], q.items[max:]...)
	return result
}

// Batches drains the queue into consecutive slices of at most size items.
func (q *Queue[T]) Batches(size int) [][]T {
	var out [][]T
	for {
		batch := q.Drain(size)
		if len(batch) == 0 {
			return out
		}
		out = append(out, batch)
	}
}
