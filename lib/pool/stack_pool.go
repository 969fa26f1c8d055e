package pool

import (
	"go.uber.org/zap"

	"github.com/benz9527/xrecycle/lib/infra"
	"github.com/benz9527/xrecycle/lib/xlog"
	"github.com/benz9527/xrecycle/observability"
)

var _ ObjectPool[*struct{}] = (*stackPool[*struct{}])(nil)

const (
	defaultInitCapacity = 10
	statsKind           = "object-pool"
)

type stackPool[T comparable] struct {
	spares    []T
	factory   Factory[T]
	reset     func(T) // nil means recycle as-is
	maxSpares int     // 0 means unbounded
	stats     *observability.RecycleStats
	logger    xlog.XLogger
}

func NewObjectPool[T comparable](factory Factory[T], opts ...ObjectPoolOption[T]) (ObjectPool[T], error) {
	if factory == nil {
		return nil, infra.WrapErrorStackWithMessage(infra.ErrInvalidArgument, "[object-pool] nil factory")
	}
	cfg := &objectPoolCfg[T]{
		initCapacity: defaultInitCapacity,
	}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}

	p := &stackPool[T]{
		spares:    make([]T, 0, max(cfg.initCapacity, cfg.preallocate)),
		factory:   factory,
		reset:     cfg.resetter,
		maxSpares: cfg.maxSpares,
	}
	if p.reset == nil {
		p.reset = resolveReset[T]()
	}
	if cfg.statsEnabled {
		p.stats = observability.NewRecycleStats(statsKind, cfg.statsName)
	}
	if cfg.logger != nil {
		p.logger = cfg.logger.With(zap.String("component", statsKind))
	}

	prealloc := cfg.preallocate
	if p.maxSpares > 0 {
		prealloc = min(prealloc, p.maxSpares)
	}
	for i := 0; i < prealloc; i++ {
		p.spares = append(p.spares, factory())
	}
	p.stats.RecordIdle(int64(len(p.spares)))
	return p, nil
}

// resolveReset decides the reset dispatch once per pool.
// Only interface element types need a check on every recycled object.
func resolveReset[T comparable]() func(T) {
	var zero T
	if _, ok := any(zero).(Resettable); ok {
		return func(obj T) {
			any(obj).(Resettable).Reset()
		}
	}
	if any(zero) == nil {
		return func(obj T) {
			if r, ok := any(obj).(Resettable); ok {
				r.Reset()
			}
		}
	}
	return nil
}

func (p *stackPool[T]) Obtain() T {
	n := len(p.spares)
	if n <= 0 {
		p.stats.RecordMiss()
		return p.factory()
	}
	obj := p.spares[n-1]
	var zero T
	p.spares[n-1] = zero // avoid memory leaks
	p.spares = p.spares[:n-1]
	p.stats.RecordHit()
	return obj
}

func (p *stackPool[T]) Recycle(obj T) error {
	var zero T
	if obj == zero {
		err := infra.WrapErrorStackWithMessage(infra.ErrInvalidArgument, "[object-pool] recycle an empty object")
		if p.logger != nil {
			p.logger.ErrorStack(err, "object pool recycle rejected")
		}
		return err
	}
	if p.reset != nil {
		p.reset(obj)
	}
	if p.maxSpares > 0 && len(p.spares) >= p.maxSpares {
		p.stats.RecordDropped(1, false)
		if p.logger != nil {
			p.logger.Debug("object pool spares are full, drop the recycled object",
				zap.Int("maxSpares", p.maxSpares),
			)
		}
		return nil
	}
	p.spares = append(p.spares, obj)
	p.stats.RecordRecycled()
	return nil
}

func (p *stackPool[T]) Len() int64 {
	return int64(len(p.spares))
}

func (p *stackPool[T]) IsEmpty() bool {
	return p.Len() == 0
}

func (p *stackPool[T]) Clear() {
	n := len(p.spares)
	clear(p.spares)
	p.spares = p.spares[:0]
	p.stats.RecordDropped(int64(n), true)
}
