package pool

import (
	"github.com/benz9527/xrecycle/lib/xlog"
)

type objectPoolCfg[T comparable] struct {
	initCapacity int
	preallocate  int
	maxSpares    int
	resetter     func(T)
	statsEnabled bool
	statsName    string
	logger       xlog.XLogger
}

type ObjectPoolOption[T comparable] func(*objectPoolCfg[T])

// WithObjectPoolInitCapacity sets the initial capacity of the spares, 10 by default.
func WithObjectPoolInitCapacity[T comparable](capacity int) ObjectPoolOption[T] {
	return func(cfg *objectPoolCfg[T]) {
		if capacity < 0 {
			capacity = defaultInitCapacity
		}
		cfg.initCapacity = capacity
	}
}

// WithObjectPoolPreallocate fills the pool with n factory products.
func WithObjectPoolPreallocate[T comparable](n int) ObjectPoolOption[T] {
	return func(cfg *objectPoolCfg[T]) {
		cfg.preallocate = max(n, 0)
	}
}

// WithObjectPoolMaxSpares caps the kept spares. The recycled objects over the cap
// are still reset, then dropped. Zero or negative means unbounded.
func WithObjectPoolMaxSpares[T comparable](n int) ObjectPoolOption[T] {
	return func(cfg *objectPoolCfg[T]) {
		cfg.maxSpares = max(n, 0)
	}
}

// WithObjectPoolResetter overrides the Resettable dispatch.
func WithObjectPoolResetter[T comparable](fn func(T)) ObjectPoolOption[T] {
	return func(cfg *objectPoolCfg[T]) {
		cfg.resetter = fn
	}
}

// WithObjectPoolStats records the recycle stats under the pool name.
func WithObjectPoolStats[T comparable](name string) ObjectPoolOption[T] {
	return func(cfg *objectPoolCfg[T]) {
		cfg.statsEnabled = true
		cfg.statsName = name
	}
}

// WithObjectPoolLogger logs the rejected recycles and the dropped spares.
func WithObjectPoolLogger[T comparable](logger xlog.XLogger) ObjectPoolOption[T] {
	return func(cfg *objectPoolCfg[T]) {
		cfg.logger = logger
	}
}
