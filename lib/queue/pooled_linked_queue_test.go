package queue

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/benz9527/xrecycle/lib/infra"
)

type job struct {
	id   int
	name string
}

func newJobs(n int) []*job {
	return lo.Map(lo.Range(n), func(i int, _ int) *job {
		return &job{id: i, name: fmt.Sprintf("job-%d", i)}
	})
}

func newJobQueue(t *testing.T, n int, opts ...PooledLinkedQueueOption[*job]) (PooledQueue[*job], []*job) {
	t.Helper()
	jobs := newJobs(n)
	q, err := NewPooledLinkedQueueFrom[*job](jobs, opts...)
	require.NoError(t, err)
	requireQueueInvariants(t, q)
	return q, jobs
}

// requireQueueInvariants checks that every node is either live or pooled,
// the links are consistent with head, tail and size, and the pooled nodes are reset.
func requireQueueInvariants[E comparable](t *testing.T, pq PooledQueue[E]) {
	t.Helper()
	q, ok := pq.(*pooledLinkedQueue[E])
	require.True(t, ok)

	var zero E
	seen := make(map[uint32]struct{}, q.arena.allocated())
	count, prev := int64(0), nilNode
	for idx := q.head; idx != nilNode; idx = q.arena.node(idx).next {
		_, dup := seen[idx]
		require.False(t, dup, "cycle in live chain at %d", idx)
		seen[idx] = struct{}{}
		n := q.arena.node(idx)
		require.Equal(t, prev, n.prev, "broken prev link at %d", idx)
		require.NotEqual(t, zero, n.item, "empty item is live at %d", idx)
		prev = idx
		count++
	}
	require.Equal(t, prev, q.tail)
	require.Equal(t, count, q.Len())
	switch q.Len() {
	case 0:
		require.Equal(t, nilNode, q.head)
		require.Equal(t, nilNode, q.tail)
	case 1:
		require.Equal(t, q.head, q.tail)
	}

	for _, idx := range q.arena.free {
		_, dup := seen[idx]
		require.False(t, dup, "node %d is live and pooled, or pooled twice", idx)
		seen[idx] = struct{}{}
		require.Equal(t, pooledNode[E]{}, *q.arena.node(idx))
	}
	require.Len(t, seen, q.arena.allocated())
}

func TestPooledLinkedQueue_EmptyByDefault(t *testing.T) {
	q := NewPooledLinkedQueue[*job]()
	require.Equal(t, int64(0), q.Len())
	head, ok := q.Peek()
	require.False(t, ok)
	require.Nil(t, head)
	require.Equal(t, defaultInitPooledNodes, q.PooledNodes())
	requireQueueInvariants(t, q)
}

func TestPooledLinkedQueue_InitNodes(t *testing.T) {
	testcases := []struct {
		name     string
		opts     []PooledLinkedQueueOption[*job]
		expected int
	}{
		{"default", nil, defaultInitPooledNodes},
		{"zero", []PooledLinkedQueueOption[*job]{WithPooledLinkedQueueInitNodes[*job](0)}, 0},
		{"custom", []PooledLinkedQueueOption[*job]{WithPooledLinkedQueueInitNodes[*job](32)}, 32},
		{"negative keeps default", []PooledLinkedQueueOption[*job]{WithPooledLinkedQueueInitNodes[*job](-1)}, defaultInitPooledNodes},
		{"nil option", []PooledLinkedQueueOption[*job]{nil}, defaultInitPooledNodes},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			q := NewPooledLinkedQueue[*job](tc.opts...)
			require.Equal(t, tc.expected, q.PooledNodes())
		})
	}
}

func TestPooledLinkedQueue_FromEmptyItems(t *testing.T) {
	for _, items := range [][]*job{nil, {}} {
		q, err := NewPooledLinkedQueueFrom[*job](items)
		require.NoError(t, err)
		require.Equal(t, int64(0), q.Len())
		_, ok := q.Peek()
		require.False(t, ok)
		require.Equal(t, 0, q.PooledNodes())
	}
}

func TestPooledLinkedQueue_FromItems(t *testing.T) {
	for _, size := range []int{1, 3} {
		t.Run(fmt.Sprintf("size-%d", size), func(t *testing.T) {
			q, jobs := newJobQueue(t, size)
			require.Equal(t, int64(size), q.Len())
			head, ok := q.Peek()
			require.True(t, ok)
			require.Same(t, jobs[0], head)
			require.Equal(t, jobs, q.ToSlice())
			require.Equal(t, 0, q.PooledNodes())
		})
	}
}

func TestPooledLinkedQueue_FromItemsWithExtraPooledNodes(t *testing.T) {
	q, _ := newJobQueue(t, 3, WithPooledLinkedQueueInitNodes[*job](5))
	require.Equal(t, int64(3), q.Len())
	require.Equal(t, 5, q.PooledNodes())
}

func TestPooledLinkedQueue_FromItemsWithEmptyItem(t *testing.T) {
	jobs := newJobs(3)
	jobs[1] = nil
	q, err := NewPooledLinkedQueueFrom[*job](jobs)
	require.Nil(t, q)
	require.ErrorIs(t, err, infra.ErrInvalidArgument)
	require.Contains(t, err.Error(), "index 1")
}

func TestPooledLinkedQueue_FromItemsOrder(t *testing.T) {
	q, err := NewPooledLinkedQueueFrom[string]([]string{"E1", "E2", "E3"})
	require.NoError(t, err)
	require.Equal(t, int64(3), q.Len())
	require.Equal(t, []string{"E1", "E2", "E3"}, slices.Collect(q.All()))
}

func TestPooledLinkedQueue_PollEmpty(t *testing.T) {
	q := NewPooledLinkedQueue[*job]()
	item, ok := q.Poll()
	require.False(t, ok)
	require.Nil(t, item)
	require.Equal(t, int64(0), q.Len())
	_, ok = q.Peek()
	require.False(t, ok)
	requireQueueInvariants(t, q)
}

func TestPooledLinkedQueue_PollTheOnlyOne(t *testing.T) {
	q, jobs := newJobQueue(t, 1)
	item, ok := q.Poll()
	require.True(t, ok)
	require.Same(t, jobs[0], item)
	require.Equal(t, int64(0), q.Len())
	_, ok = q.Peek()
	require.False(t, ok)
	requireQueueInvariants(t, q)
}

func TestPooledLinkedQueue_PollAfterOffer(t *testing.T) {
	q, _ := newJobQueue(t, 1)
	_, _ = q.Poll()
	j := &job{id: 100}
	require.NoError(t, q.Offer(j))
	head, ok := q.Peek()
	require.True(t, ok)
	require.Same(t, j, head)
	requireQueueInvariants(t, q)
}

func TestPooledLinkedQueue_PollReturnsTheHead(t *testing.T) {
	for _, size := range []int{1, 3} {
		t.Run(fmt.Sprintf("size-%d", size), func(t *testing.T) {
			q, _ := newJobQueue(t, size)
			head, _ := q.Peek()
			sizeBefore := q.Len()
			item, ok := q.Poll()
			require.True(t, ok)
			require.Same(t, head, item)
			require.Equal(t, int64(1), sizeBefore-q.Len())
			requireQueueInvariants(t, q)
		})
	}
}

func TestPooledLinkedQueue_OfferIntoEmptyQueue(t *testing.T) {
	q := NewPooledLinkedQueue[*job]()
	j := &job{id: 1}
	require.NoError(t, q.Offer(j))
	require.Equal(t, int64(1), q.Len())
	head, ok := q.Peek()
	require.True(t, ok)
	require.Same(t, j, head)
	requireQueueInvariants(t, q)
}

func TestPooledLinkedQueue_OfferKeepsTheHead(t *testing.T) {
	testcases := []struct {
		size, insertions int
	}{
		{1, 1}, {1, 3}, {3, 1}, {3, 3},
	}
	for _, tc := range testcases {
		q, jobs := newJobQueue(t, tc.size)
		for i := 0; i < tc.insertions; i++ {
			sizeBefore := q.Len()
			require.NoError(t, q.Offer(&job{id: 100 + i}))
			require.Equal(t, int64(1), q.Len()-sizeBefore)
		}
		head, _ := q.Peek()
		require.Same(t, jobs[0], head)
		requireQueueInvariants(t, q)
	}
}

func TestPooledLinkedQueue_OfferEmptyItem(t *testing.T) {
	q, _ := newJobQueue(t, 2)
	pooled := q.PooledNodes()
	err := q.Offer(nil)
	require.ErrorIs(t, err, infra.ErrInvalidArgument)
	require.Equal(t, int64(2), q.Len())
	require.Equal(t, pooled, q.PooledNodes())
	requireQueueInvariants(t, q)

	sq := NewPooledLinkedQueue[string]()
	require.ErrorIs(t, sq.Offer(""), infra.ErrInvalidArgument)
	require.Equal(t, int64(0), sq.Len())
}

func TestPooledLinkedQueue_FIFO(t *testing.T) {
	q := NewPooledLinkedQueue[string]()
	for _, v := range []string{"A", "B", "C"} {
		require.NoError(t, q.Offer(v))
	}
	for _, expected := range []string{"A", "B", "C"} {
		head, ok := q.Peek()
		require.True(t, ok)
		require.Equal(t, expected, head)
		item, ok := q.Poll()
		require.True(t, ok)
		require.Equal(t, expected, item)
	}
	_, ok := q.Poll()
	require.False(t, ok)
}

func TestPooledLinkedQueue_OfferAll(t *testing.T) {
	q := NewPooledLinkedQueue[string]()
	require.NoError(t, q.OfferAll("a", "b"))
	require.NoError(t, q.OfferAll())

	err := q.OfferAll("c", "", "d")
	require.ErrorIs(t, err, infra.ErrInvalidArgument)
	// All or nothing.
	require.Equal(t, []string{"a", "b"}, q.ToSlice())
	requireQueueInvariants(t, q)
}

func TestPooledLinkedQueue_RemoveAndElement(t *testing.T) {
	q := NewPooledLinkedQueue[string]()
	_, err := q.Remove()
	require.ErrorIs(t, err, ErrQueueEmpty)
	_, err = q.Element()
	require.ErrorIs(t, err, ErrQueueEmpty)

	require.NoError(t, q.OfferAll("x", "y"))
	item, err := q.Element()
	require.NoError(t, err)
	require.Equal(t, "x", item)
	require.Equal(t, int64(2), q.Len())

	item, err = q.Remove()
	require.NoError(t, err)
	require.Equal(t, "x", item)
	require.Equal(t, int64(1), q.Len())
}

func TestPooledLinkedQueue_ContainsAndRemoveItem(t *testing.T) {
	q, jobs := newJobQueue(t, 4)
	stranger := &job{id: 1}
	require.True(t, q.Contains(jobs[2]))
	require.False(t, q.Contains(stranger))

	require.False(t, q.RemoveItem(stranger))
	require.True(t, q.RemoveItem(jobs[2]))
	require.False(t, q.Contains(jobs[2]))
	require.Equal(t, []*job{jobs[0], jobs[1], jobs[3]}, q.ToSlice())

	require.True(t, q.RemoveItem(jobs[0]))
	require.True(t, q.RemoveItem(jobs[3]))
	require.Equal(t, []*job{jobs[1]}, q.ToSlice())
	require.True(t, q.RemoveItem(jobs[1]))
	require.Equal(t, int64(0), q.Len())
	requireQueueInvariants(t, q)
}

func TestPooledLinkedQueue_Clear(t *testing.T) {
	q, _ := newJobQueue(t, 5, WithPooledLinkedQueueInitNodes[*job](2))
	q.Clear()
	require.Equal(t, int64(0), q.Len())
	require.Equal(t, 7, q.PooledNodes())
	requireQueueInvariants(t, q)

	q.Clear()
	require.Equal(t, 7, q.PooledNodes())
}

func TestPooledLinkedQueue_Foreach(t *testing.T) {
	q, jobs := newJobQueue(t, 5)
	visited := make([]*job, 0, 5)
	q.Foreach(func(idx int64, item *job) bool {
		require.Same(t, jobs[idx], item)
		visited = append(visited, item)
		return idx < 2
	})
	require.Len(t, visited, 3)

	q.Foreach(nil)
	NewPooledLinkedQueue[*job]().Foreach(func(int64, *job) bool {
		t.Fatal("empty queue must not be visited")
		return true
	})
}

func TestPooledLinkedQueue_AllBreak(t *testing.T) {
	q, jobs := newJobQueue(t, 5)
	count := 0
	for item := range q.All() {
		require.Same(t, jobs[count], item)
		count++
		if count == 2 {
			break
		}
	}
	require.Equal(t, 2, count)
	require.Equal(t, int64(5), q.Len())
}

func TestPooledLinkedQueue_NodesAreRecycled(t *testing.T) {
	q, _ := newJobQueue(t, 3)
	impl := q.(*pooledLinkedQueue[*job])
	require.Equal(t, 3, impl.arena.allocated())

	_, _ = q.Poll()
	_, _ = q.Poll()
	require.Equal(t, 2, q.PooledNodes())

	require.NoError(t, q.Offer(&job{id: 10}))
	require.NoError(t, q.Offer(&job{id: 11}))
	require.Equal(t, 0, q.PooledNodes())
	require.Equal(t, 3, impl.arena.allocated())

	require.NoError(t, q.Offer(&job{id: 12}))
	require.Equal(t, 4, impl.arena.allocated())
	requireQueueInvariants(t, q)
}

func TestPooledLinkedQueue_PreAllocatedNodesAvoidAllocation(t *testing.T) {
	q := NewPooledLinkedQueue[int]()
	impl := q.(*pooledLinkedQueue[int])
	for i := 1; i <= defaultInitPooledNodes; i++ {
		require.NoError(t, q.Offer(i))
	}
	require.Equal(t, defaultInitPooledNodes, impl.arena.allocated())
	require.Equal(t, 0, q.PooledNodes())
	require.NoError(t, q.Offer(defaultInitPooledNodes+1))
	require.Equal(t, defaultInitPooledNodes+1, impl.arena.allocated())
	requireQueueInvariants(t, q)
}

// Compares the queue with a slice model under random offers, polls and
// iterator removals.
func TestPooledLinkedQueue_RandomOperations(t *testing.T) {
	rnd := rand.New(rand.NewSource(20140101))
	q := NewPooledLinkedQueue[int](WithPooledLinkedQueueInitNodes[int](4))
	model := make([]int, 0, 64)
	nextVal, offers, polls := 1, 0, 0

	for round := 0; round < 2000; round++ {
		switch op := rnd.Intn(10); {
		case op < 5:
			require.NoError(t, q.Offer(nextVal))
			model = append(model, nextVal)
			nextVal++
			offers++
		case op < 8:
			item, ok := q.Poll()
			if len(model) == 0 {
				require.False(t, ok)
				continue
			}
			require.True(t, ok)
			require.Equal(t, model[0], item)
			model = model[1:]
			polls++
		default:
			if len(model) == 0 {
				continue
			}
			target := rnd.Intn(len(model))
			itr := q.Iterator()
			for i := 0; i <= target; i++ {
				_, ok := itr.Next()
				require.True(t, ok)
			}
			require.NoError(t, itr.Remove())
			model = slices.Delete(model, target, target+1)
			polls++
		}

		require.Equal(t, int64(offers-polls), q.Len())
		require.GreaterOrEqual(t, q.Len(), int64(0))
		if head, ok := q.Peek(); ok {
			require.Equal(t, model[0], head)
		}
	}
	require.Equal(t, model, q.ToSlice())
	requireQueueInvariants(t, q)
}

func TestPooledLinkedQueue_Stats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	defer func() {
		_ = mp.Shutdown(context.Background())
	}()

	q := NewPooledLinkedQueue[string](
		WithPooledLinkedQueueInitNodes[string](2),
		WithPooledLinkedQueueStats[string]("jobs"),
	)
	require.NoError(t, q.OfferAll("a", "b", "c")) // 2 hits, 1 miss
	_, _ = q.Poll()                               // 1 recycled
	require.True(t, q.RemoveItem("c"))            // 1 recycled

	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		require.Equal(t, "xrecycle/pooled-linked-queue", sm.Scope.Name)
		for _, m := range sm.Metrics {
			sum := m.Data.(metricdata.Sum[int64])
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), sums["xrecycle.obtain.hits"])
	assert.Equal(t, int64(1), sums["xrecycle.obtain.misses"])
	assert.Equal(t, int64(2), sums["xrecycle.recycled"])
	assert.Equal(t, int64(q.PooledNodes()), sums["xrecycle.idle"])
}

func collectQueueSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestPooledLinkedQueueFrom_Stats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	defer func() {
		_ = mp.Shutdown(context.Background())
	}()

	q, err := NewPooledLinkedQueueFrom[string](
		[]string{"a", "b", "c"},
		WithPooledLinkedQueueInitNodes[string](2),
		WithPooledLinkedQueueStats[string]("filled"),
	)
	require.NoError(t, err)
	require.Equal(t, 2, q.PooledNodes())

	sums := collectQueueSums(t, reader)
	// The filled nodes were never recycled.
	assert.Zero(t, sums["xrecycle.obtain.hits"])
	assert.Zero(t, sums["xrecycle.obtain.misses"])
	assert.Equal(t, int64(2), sums["xrecycle.idle"])

	require.NoError(t, q.Offer("d"))
	_, _ = q.Poll()
	sums = collectQueueSums(t, reader)
	assert.Equal(t, int64(1), sums["xrecycle.obtain.hits"])
	assert.Equal(t, int64(1), sums["xrecycle.recycled"])
	assert.Equal(t, int64(q.PooledNodes()), sums["xrecycle.idle"])
}
