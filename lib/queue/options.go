package queue

import (
	"github.com/benz9527/xrecycle/lib/xlog"
)

type pooledLinkedQueueCfg[E comparable] struct {
	initPooledNodes int
	statsEnabled    bool
	statsName       string
	logger          xlog.XLogger
}

type PooledLinkedQueueOption[E comparable] func(*pooledLinkedQueueCfg[E])

// WithPooledLinkedQueueInitNodes sets the number of the pre-allocated pooled nodes.
// For the queue created from items, they are the nodes left after the fill.
// Negative value keeps the default.
func WithPooledLinkedQueueInitNodes[E comparable](n int) PooledLinkedQueueOption[E] {
	return func(cfg *pooledLinkedQueueCfg[E]) {
		if n < 0 {
			return
		}
		cfg.initPooledNodes = n
	}
}

// WithPooledLinkedQueueStats records the node recycle stats under the queue name.
func WithPooledLinkedQueueStats[E comparable](name string) PooledLinkedQueueOption[E] {
	return func(cfg *pooledLinkedQueueCfg[E]) {
		cfg.statsEnabled = true
		cfg.statsName = name
	}
}

// WithPooledLinkedQueueLogger logs the rejected offers and removals and the node allocations.
func WithPooledLinkedQueueLogger[E comparable](logger xlog.XLogger) PooledLinkedQueueOption[E] {
	return func(cfg *pooledLinkedQueueCfg[E]) {
		cfg.logger = logger
	}
}
