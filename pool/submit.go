package pool

import (
	"errors"

	"github.com/utkarsh5026/threadpool/internal/queue"
	"github.com/utkarsh5026/threadpool/internal/types"
)

// Submit queues fn for execution and returns a Future for its result.
// It never blocks on the task itself.
//
// Whatever fn returns is stored in the Future. If fn panics, the Future
// reports a *PanicError carrying the panic value and stack trace; the
// worker that ran it keeps serving the queue.
//
// Returns:
//   - ErrNilTask if fn is nil
//   - ErrPoolShutdown (matches ErrInvalidState) once Shutdown has begun
//
// Example:
//
//	future, err := pool.Submit(p, func() (string, error) {
//	    return fetch(url)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Option 1: Block until result is ready
//	body, err := future.Get()
//
//	// Option 2: Wait with timeout
//	body, err := future.GetWithTimeout(5 * time.Second)
//
//	// Option 3: Check if ready without blocking
//	if future.IsReady() {
//	    body, _ := future.Get()
//	}
func Submit[R any](p *ThreadPool, fn func() (R, error)) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}

	task, future := types.NewTask(p.taskID.Add(1), fn)
	if err := p.enqueue(task); err != nil {
		return nil, err
	}
	return future, nil
}

// SubmitArg binds arg to fn and submits the resulting call, so that a
// function of one parameter can be queued without writing a closure.
// Use a struct for several arguments.
//
// Example:
//
//	future, err := pool.SubmitArg(p, probe.Check, target)
func SubmitArg[A, R any](p *ThreadPool, fn func(A) (R, error), arg A) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (R, error) {
		return fn(arg)
	})
}

// SubmitFunc submits a callable that cannot fail. Panics are still captured.
func SubmitFunc[R any](p *ThreadPool, fn func() R) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (R, error) {
		return fn(), nil
	})
}

// Go submits a closure run only for its side effects. The returned Future
// resolves once fn has returned, with a *PanicError if it panicked.
func (p *ThreadPool) Go(fn func()) (*Future[struct{}], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
}

// enqueue pushes t onto the current generation's queue. The queue's own
// lock decides atomically whether t is accepted or the pool is closing.
func (p *ThreadPool) enqueue(t *types.Task) error {
	g := p.current()

	p.submitted.Add(1)
	if err := g.queue.Push(t); err != nil {
		p.submitted.Add(^uint64(0))
		if errors.Is(err, queue.ErrQueueClosed) {
			return ErrPoolShutdown
		}
		return err
	}
	return nil
}
