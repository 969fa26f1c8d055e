package queue

import (
	"github.com/benz9527/xrecycle/lib/infra"
)

var _ QueueIterator[struct{}] = (*pooledLinkedQueueIter[struct{}])(nil)

// pooledLinkedQueueIter shares the nodes with its queue, the removal
// moves the queue's head and tail directly.
type pooledLinkedQueueIter[E comparable] struct {
	queue        *pooledLinkedQueue[E]
	lastReturned uint32
	next         uint32
	advanced     bool // Next has returned at least one item
	allowRemove  bool // no removal since the latest Next
}

func (itr *pooledLinkedQueueIter[E]) HasNext() bool {
	return itr.next != nilNode
}

func (itr *pooledLinkedQueueIter[E]) Next() (item E, ok bool) {
	if itr.next == nilNode {
		return item, false
	}
	n := itr.queue.arena.node(itr.next)
	itr.lastReturned = itr.next
	itr.next = n.next
	itr.advanced, itr.allowRemove = true, true
	return n.item, true
}

func (itr *pooledLinkedQueueIter[E]) Remove() error {
	if !itr.advanced {
		return nil
	}
	if !itr.allowRemove {
		err := infra.WrapErrorStackWithMessage(
			infra.ErrInvalidState,
			"[pooled-linked-queue] iterator next has not been called since the last remove",
		)
		if itr.queue.logger != nil {
			itr.queue.logger.ErrorStack(err, "pooled linked queue iterator remove rejected")
		}
		return err
	}
	// The pending next node is still linked, it becomes the successor of
	// the removed node's prev.
	itr.queue.unlink(itr.lastReturned)
	itr.lastReturned = nilNode
	itr.allowRemove = false
	return nil
}
