package queue

import (
	"iter"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/benz9527/xrecycle/lib/infra"
	"github.com/benz9527/xrecycle/lib/xlog"
	"github.com/benz9527/xrecycle/observability"
)

var _ PooledQueue[struct{}] = (*pooledLinkedQueue[struct{}])(nil) // Type check assertion

const (
	defaultInitPooledNodes = 10
	statsKind              = "pooled-linked-queue"
)

// pooledLinkedQueue is a doubly linked list used as FIFO.
// The nodes live in an arena and are addressed by index, the removed
// nodes are recycled instead of being collected by GC.
type pooledLinkedQueue[E comparable] struct {
	arena  *nodeArena[E]
	head   uint32
	tail   uint32
	size   int64
	stats  *observability.RecycleStats
	logger xlog.XLogger
}

// NewPooledLinkedQueue creates an empty queue with 10 pooled nodes by default.
func NewPooledLinkedQueue[E comparable](opts ...PooledLinkedQueueOption[E]) PooledQueue[E] {
	cfg := &pooledLinkedQueueCfg[E]{
		initPooledNodes: defaultInitPooledNodes,
	}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	return newPooledLinkedQueue[E](cfg, nil)
}

// NewPooledLinkedQueueFrom creates a queue filled with the items in order.
// By default, there is no pooled node left after the fill, set it by
// WithPooledLinkedQueueInitNodes.
func NewPooledLinkedQueueFrom[E comparable](items []E, opts ...PooledLinkedQueueOption[E]) (PooledQueue[E], error) {
	cfg := &pooledLinkedQueueCfg[E]{
		initPooledNodes: 0,
	}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	if err := checkItems(items); err != nil {
		return nil, err
	}
	return newPooledLinkedQueue[E](cfg, items), nil
}

// newPooledLinkedQueue sizes the arena for the items plus the pooled nodes.
// The items are linked before the stats start, only the pooled nodes
// left over count as idle.
func newPooledLinkedQueue[E comparable](cfg *pooledLinkedQueueCfg[E], items []E) *pooledLinkedQueue[E] {
	q := &pooledLinkedQueue[E]{
		arena: newNodeArena[E](cfg.initPooledNodes + len(items)),
		head:  nilNode,
		tail:  nilNode,
	}
	for _, item := range items {
		idx, _ := q.arena.obtain()
		q.linkNode(idx, item)
	}
	if cfg.statsEnabled {
		q.stats = observability.NewRecycleStats(statsKind, cfg.statsName)
		q.stats.RecordIdle(int64(q.arena.pooled()))
	}
	if cfg.logger != nil {
		q.logger = cfg.logger.With(zap.String("component", statsKind))
	}
	return q
}

func checkItems[E comparable](items []E) error {
	var zero E
	if idx := slices.Index(items, zero); idx >= 0 {
		return infra.WrapErrorStackWithMessage(
			infra.ErrInvalidArgument,
			"[pooled-linked-queue] empty item at index "+strconv.Itoa(idx),
		)
	}
	return nil
}

func (q *pooledLinkedQueue[E]) Len() int64 {
	return q.size
}

func (q *pooledLinkedQueue[E]) Offer(item E) error {
	var zero E
	if item == zero {
		err := infra.WrapErrorStackWithMessage(infra.ErrInvalidArgument, "[pooled-linked-queue] offer an empty item")
		if q.logger != nil {
			q.logger.ErrorStack(err, "pooled linked queue offer rejected")
		}
		return err
	}
	q.link(item)
	return nil
}

func (q *pooledLinkedQueue[E]) OfferAll(items ...E) error {
	if err := checkItems(items); err != nil {
		if q.logger != nil {
			q.logger.ErrorStack(err, "pooled linked queue offer all rejected", zap.Int("items", len(items)))
		}
		return err
	}
	for _, item := range items {
		q.link(item)
	}
	return nil
}

func (q *pooledLinkedQueue[E]) Poll() (item E, ok bool) {
	if q.size <= 0 || q.head == nilNode {
		return item, false
	}
	return q.unlink(q.head), true
}

func (q *pooledLinkedQueue[E]) Peek() (item E, ok bool) {
	if q.head == nilNode {
		return item, false
	}
	return q.arena.node(q.head).item, true
}

func (q *pooledLinkedQueue[E]) Remove() (E, error) {
	item, ok := q.Poll()
	if !ok {
		return item, infra.WrapErrorStackWithMessage(ErrQueueEmpty, "[pooled-linked-queue] remove")
	}
	return item, nil
}

func (q *pooledLinkedQueue[E]) Element() (E, error) {
	item, ok := q.Peek()
	if !ok {
		return item, infra.WrapErrorStackWithMessage(ErrQueueEmpty, "[pooled-linked-queue] element")
	}
	return item, nil
}

func (q *pooledLinkedQueue[E]) Contains(item E) bool {
	for v := range q.All() {
		if v == item {
			return true
		}
	}
	return false
}

func (q *pooledLinkedQueue[E]) RemoveItem(item E) bool {
	itr := q.Iterator()
	for itr.HasNext() {
		if v, _ := itr.Next(); v == item {
			return itr.Remove() == nil
		}
	}
	return false
}

func (q *pooledLinkedQueue[E]) Clear() {
	for q.head != nilNode {
		q.unlink(q.head)
	}
}

func (q *pooledLinkedQueue[E]) Iterator() QueueIterator[E] {
	return &pooledLinkedQueueIter[E]{
		queue:        q,
		lastReturned: nilNode,
		next:         q.head,
	}
}

func (q *pooledLinkedQueue[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for idx := q.head; idx != nilNode; {
			n := q.arena.node(idx)
			next := n.next
			if !yield(n.item) {
				return
			}
			idx = next
		}
	}
}

func (q *pooledLinkedQueue[E]) Foreach(fn func(idx int64, item E) bool) {
	if fn == nil || q.size <= 0 {
		return
	}
	i := int64(0)
	for item := range q.All() {
		if !fn(i, item) {
			return
		}
		i++
	}
}

func (q *pooledLinkedQueue[E]) ToSlice() []E {
	return slices.AppendSeq(make([]E, 0, q.size), q.All())
}

func (q *pooledLinkedQueue[E]) PooledNodes() int {
	return q.arena.pooled()
}

// link appends a non-empty item at the tail.
func (q *pooledLinkedQueue[E]) link(item E) {
	q.linkNode(q.obtainNode(), item)
}

func (q *pooledLinkedQueue[E]) linkNode(idx uint32, item E) {
	n := q.arena.node(idx)
	n.item = item
	n.prev = q.tail
	if q.tail != nilNode {
		q.arena.node(q.tail).next = idx
	}
	if q.size == 0 {
		q.head = idx
	}
	q.tail = idx
	q.size++
}

// unlink bridges the prev and next of the live node idx, then recycles it.
// The queue's head and tail are moved if idx is one of them.
func (q *pooledLinkedQueue[E]) unlink(idx uint32) E {
	n := q.arena.node(idx)
	item, prev, next := n.item, n.prev, n.next
	if prev != nilNode {
		q.arena.node(prev).next = next
	} else {
		q.head = next
	}
	if next != nilNode {
		q.arena.node(next).prev = prev
	} else {
		q.tail = prev
	}
	q.recycleNode(idx)
	q.size--
	return item
}

func (q *pooledLinkedQueue[E]) obtainNode() uint32 {
	idx, allocated := q.arena.obtain()
	if !allocated {
		q.stats.RecordHit()
		return idx
	}
	q.stats.RecordMiss()
	if q.logger != nil {
		q.logger.Debug("pooled linked queue has no pooled node, allocate a new one",
			zap.Int("allocated", q.arena.allocated()),
			zap.Int64("len", q.size),
		)
	}
	return idx
}

func (q *pooledLinkedQueue[E]) recycleNode(idx uint32) {
	q.arena.recycle(idx)
	q.stats.RecordRecycled()
}
