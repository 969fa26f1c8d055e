package queue

import (
	"errors"
	"iter"
)

var ErrQueueEmpty = errors.New("[pooled-linked-queue] there is no element")

// PooledQueue is a FIFO queue which recycles its own linked nodes.
// It is not thread safe, a queue and its iterators must be used by
// a single goroutine.
// The zero value of E is treated as an empty item and never stored.
type PooledQueue[E comparable] interface {
	Len() int64
	// Offer appends the item at the tail. It fails only if the item is empty,
	// then nothing changes and the error wraps infra.ErrInvalidArgument.
	Offer(item E) error
	// OfferAll offers the items in order. Either all of them are offered, or
	// none of them if there is an empty item.
	OfferAll(items ...E) error
	// Poll removes and returns the head, or false if the queue is empty.
	Poll() (E, bool)
	// Peek returns the head without removing it, or false if the queue is empty.
	Peek() (E, bool)
	// Remove is the Poll that returns ErrQueueEmpty instead of false.
	Remove() (E, error)
	// Element is the Peek that returns ErrQueueEmpty instead of false.
	Element() (E, error)
	Contains(item E) bool
	// RemoveItem removes the first item equal to the given one.
	RemoveItem(item E) bool
	// Clear removes all items, every node goes back to the node pool.
	Clear()
	// Iterator traverses from head to tail and is able to remove the last returned item.
	// Any structural change which is not made by the iterator itself invalidates it.
	Iterator() QueueIterator[E]
	// All is the lazy read-only sequence from head to tail.
	All() iter.Seq[E]
	// Foreach traverses from head to tail until fn returns false.
	Foreach(fn func(idx int64, item E) bool)
	ToSlice() []E
	// PooledNodes returns the number of the recycled nodes ready for reuse.
	PooledNodes() int
}

// QueueIterator walks a PooledQueue from head to tail.
type QueueIterator[E comparable] interface {
	HasNext() bool
	// Next advances and returns the item, or false if the traversal is done.
	Next() (E, bool)
	// Remove removes the item returned by the latest Next.
	// It does nothing before the first Next, and it fails with
	// infra.ErrInvalidState if it is called again before the next Next.
	Remove() error
}
