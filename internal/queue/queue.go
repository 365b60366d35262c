// Package queue provides the FIFO task queue shared by the workers of a
// pool, with blocking pops that wake on push or close.
package queue

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Push once Close has been called.
var ErrQueueClosed = errors.New("queue is closed")

// defaultInitialCapacity is used when the caller does not ask for a size.
const defaultInitialCapacity = 64

// TaskQueue is an unbounded FIFO shared by every worker of a pool.
//
// All state (the ring, its length and the closed flag) is guarded by a single
// mutex, and consumers wait on a condition variable tied to that mutex. A
// consumer therefore checks "is there an item?" and takes it in the same
// critical section; there is no window in which another consumer can empty
// the queue between the check and the take.
//
// Items live in a power-of-two ring buffer which doubles when full, so Push
// never fails for capacity reasons.
type TaskQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []T
	mask   int
	head   int
	size   int
	closed bool
}

// New creates an empty queue. capacity is only the initial ring size.
func New[T any](capacity int) *TaskQueue[T] {
	if capacity <= 0 {
		capacity = defaultInitialCapacity
	}
	capacity = nextPowerOfTwo(capacity)

	q := &TaskQueue[T]{
		ring: make([]T, capacity),
		mask: capacity - 1,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends item to the back of the queue and wakes one waiting consumer.
// It returns ErrQueueClosed once Close has been called.
func (q *TaskQueue[T]) Push(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}

	if q.size == len(q.ring) {
		q.grow()
	}
	q.ring[(q.head+q.size)&q.mask] = item
	q.size++
	q.mu.Unlock()

	q.cond.Signal()
	return nil
}

// PopBlocking waits until the queue holds an item or has been closed, then
// removes and returns the front item.
//
// The wait predicate is re-evaluated after every wakeup, so spurious or stale
// signals are harmless. ok is false only when the queue is closed and empty;
// items pushed before Close are always handed out first.
func (q *TaskQueue[T]) PopBlocking() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.size == 0 {
		return item, false
	}
	return q.take(), true
}

// TryPop removes and returns the front item without waiting.
func (q *TaskQueue[T]) TryPop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return item, false
	}
	return q.take(), true
}

// Close marks the queue as closed and wakes every waiting consumer.
// Pending items stay in the queue and can still be popped. Close is idempotent.
func (q *TaskQueue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

// Len returns the number of queued items. Diagnostic only: the value may be
// stale by the time the caller looks at it.
func (q *TaskQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// IsEmpty reports whether the queue held no items at the time of the call.
func (q *TaskQueue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// IsClosed reports whether Close has been called.
func (q *TaskQueue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// take must be called with q.mu held and q.size > 0.
func (q *TaskQueue[T]) take() T {
	var zero T
	item := q.ring[q.head]
	q.ring[q.head] = zero
	q.head = (q.head + 1) & q.mask
	q.size--
	return item
}

// grow doubles the ring and unwraps it so that head starts at index 0.
// Must be called with q.mu held.
func (q *TaskQueue[T]) grow() {
	ring := make([]T, len(q.ring)*2)
	n := copy(ring, q.ring[q.head:])
	copy(ring[n:], q.ring[:q.head])

	q.ring = ring
	q.mask = len(ring) - 1
	q.head = 0
}

// nextPowerOfTwo returns the next power of 2 >= n
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	if n&(n-1) == 0 {
		return n
	}

	power := 1
	for power < n {
		power *= 2
	}
	return power
}
