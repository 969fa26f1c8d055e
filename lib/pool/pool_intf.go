package pool

// Note that the object pool is not thread safe.
// Use sync.Pool if the instances are shared by goroutines.

// Resettable restores an instance to its default state.
// It is called by ObjectPool.Recycle before the instance is kept.
type Resettable interface {
	Reset()
}

// Factory creates a new ready-to-use instance when the pool is empty.
// It must not return the zero value of T.
type Factory[T any] func() T

// ObjectPool keeps the recycled instances in LIFO order, so Obtain
// always returns the most recently recycled one.
type ObjectPool[T comparable] interface {
	// Obtain pops the latest recycled instance, or creates one by the factory
	// if the pool is empty. Factory products are not reset.
	Obtain() T
	// Recycle resets obj if it is Resettable, then pushes it for reuse.
	// The zero value of T is rejected with infra.ErrInvalidArgument.
	Recycle(obj T) error
	Len() int64
	IsEmpty() bool
	// Clear discards all spares without resetting them.
	Clear()
}
