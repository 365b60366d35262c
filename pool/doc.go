// Package pool provides a fixed-size worker pool that executes arbitrary
// submitted functions and hands back a Future for each result.
//
// The primary type is ThreadPool: a set of workers sharing one unbounded
// FIFO queue. Tasks are plain Go functions; the generic Submit function
// captures the return type, so a single pool can run tasks of any result
// type side by side.
//
// # Basic Usage
//
//	p := pool.New(pool.WithWorkerCount(4))
//	if err := p.Init(0); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown()
//
//	futures := make([]*pool.Future[int], 10)
//	for i := range futures {
//	    futures[i], _ = pool.Submit(p, func() (int, error) {
//	        return i * i, nil
//	    })
//	}
//	for _, f := range futures {
//	    v, err := f.Get()
//	    // handle v, err
//	}
//
// # Submitting Work
//
//   - Submit(p, fn): fn returns (R, error)
//   - SubmitArg(p, fn, arg): binds one argument to fn
//   - SubmitFunc(p, fn): fn returns R and cannot fail
//   - p.Go(fn): fn returns nothing; the Future resolves when it is done
//
// Submission never blocks on the task. Tasks may be submitted before Init;
// they wait in the queue until workers start.
//
// # Futures
//
// A Future is written exactly once by the worker that ran the task and can
// be read any number of times:
//
//   - Get blocks until the result is ready
//   - GetWithContext / GetWithTimeout bound the wait (the task keeps running)
//   - TryGet, IsReady and Done never block
//
// # Ordering
//
// Tasks are dequeued in submission order. With a single worker they also
// complete in that order; with more workers completion order depends on how
// long each task takes.
//
// # Shutdown
//
// Shutdown rejects new submissions, lets the workers drain every task that
// was already accepted, then joins them. It is idempotent and safe for
// concurrent callers. ShutdownTimeout bounds the wait. After a completed
// Shutdown, Init can start the pool again.
//
// # Error Handling
//
// Lifecycle misuse (Init twice, Submit after Shutdown) returns errors that
// match ErrInvalidState via errors.Is. A task's own error, or a panic
// converted to *PanicError with its stack trace, is delivered only through
// that task's Future; it never stops a worker.
//
// # Configuration Options
//
//   - WithWorkerCount(n): workers started by Init(0) (default: DefaultWorkerCount)
//   - WithQueueCapacity(n): initial queue capacity (the queue still grows)
//   - WithRateLimit(tasksPerSecond, burst): throttle task starts
//   - WithCPUAffinity(): lock each worker to an OS thread pinned to one CPU
//   - WithBeforeTaskStart / WithOnTaskEnd: per-task hooks receiving TaskInfo
//   - WithPanicHandler: observe recovered task panics
//
// There is no task cancellation, no priority scheduling and no resizing of a
// running pool.
package pool
