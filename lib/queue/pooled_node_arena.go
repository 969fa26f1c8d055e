package queue

// nilNode is the reserved slot 0 of the arena, a zero link points to nothing.
// So a zeroed node is a reset node.
const nilNode uint32 = 0

type pooledNode[E comparable] struct {
	prev, next uint32
	item       E // Placed last to reduce the padding of small item types.
}

func (n *pooledNode[E]) reset() {
	*n = pooledNode[E]{}
}

// nodeArena owns every node ever allocated by one queue.
// A node index is either linked by the queue or kept in the free stack.
type nodeArena[E comparable] struct {
	nodes []pooledNode[E]
	free  []uint32 // recycled node indices, LIFO
}

func newNodeArena[E comparable](pooled int) *nodeArena[E] {
	pooled = max(pooled, 0)
	arena := &nodeArena[E]{
		nodes: make([]pooledNode[E], 1, pooled+1), // non-zero index
		free:  make([]uint32, 0, pooled),
	}
	arena.grow(pooled)
	return arena
}

// grow allocates n nodes into the free stack. The lower indices
// are on the top, so they are obtained first.
func (arena *nodeArena[E]) grow(n int) {
	if n <= 0 {
		return
	}
	start := len(arena.nodes)
	arena.nodes = append(arena.nodes, make([]pooledNode[E], n)...)
	for i := start + n - 1; i >= start; i-- {
		arena.free = append(arena.free, uint32(i))
	}
}

// obtain pops a recycled node, or allocates a new one if there is none.
func (arena *nodeArena[E]) obtain() (idx uint32, allocated bool) {
	if l := len(arena.free); l > 0 {
		idx = arena.free[l-1]
		arena.free = arena.free[:l-1]
		return idx, false
	}
	arena.nodes = append(arena.nodes, pooledNode[E]{})
	return uint32(len(arena.nodes) - 1), true
}

func (arena *nodeArena[E]) recycle(idx uint32) {
	arena.nodes[idx].reset()
	arena.free = append(arena.free, idx)
}

// node must not be held across obtain, the arena may be reallocated.
func (arena *nodeArena[E]) node(idx uint32) *pooledNode[E] {
	return &arena.nodes[idx]
}

func (arena *nodeArena[E]) pooled() int {
	return len(arena.free)
}

func (arena *nodeArena[E]) allocated() int {
	return len(arena.nodes) - 1
}
