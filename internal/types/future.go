package types

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrFutureTimeout is returned by GetWithTimeout when the result is not
// ready before the timeout elapses. The task itself keeps running.
var ErrFutureTimeout = errors.New("future: timed out waiting for result")

// Future is the read side of a single-resolution result slot.
//
// The slot is written exactly once by the worker that executed the task
// (see Task.Run). Every read after that returns the same value and error.
// Waiting on a Future never affects the task: GetWithContext and
// GetWithTimeout only bound how long the caller is willing to block.
type Future[R any] struct {
	id    uint64
	done  chan struct{}
	once  sync.Once
	value R
	err   error
}

// NewFuture creates an unresolved Future for the task with the given id.
func NewFuture[R any](id uint64) *Future[R] {
	return &Future[R]{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the id of the task this Future belongs to.
func (f *Future[R]) ID() uint64 {
	return f.id
}

// complete stores the result and releases every waiter.
// Only the first call has any effect.
func (f *Future[R]) complete(value R, err error) bool {
	written := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		written = true
		close(f.done)
	})
	return written
}

// Get blocks until the result is available and returns it.
// A failure captured while running the task is returned as err.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.value, f.err
}

// GetWithContext blocks until the result is available or ctx is done.
// If ctx finishes first, the zero value and ctx.Err() are returned.
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// GetWithTimeout is like Get but gives up after timeout with ErrFutureTimeout.
// A non-positive timeout waits forever.
func (f *Future[R]) GetWithTimeout(timeout time.Duration) (R, error) {
	if timeout <= 0 {
		return f.Get()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		var zero R
		return zero, ErrFutureTimeout
	}
}

// TryGet returns the result without blocking. ready is false if the task
// has not finished yet, in which case value and err are zero.
func (f *Future[R]) TryGet() (value R, err error, ready bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		return value, nil, false
	}
}

// IsReady reports whether the result has been written.
func (f *Future[R]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once the result is available.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}
