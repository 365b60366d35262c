package pool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/utkarsh5026/threadpool/internal/queue"
	"github.com/utkarsh5026/threadpool/internal/types"
	"golang.org/x/sync/errgroup"
)

// Future is the read-only handle returned by Submit. See types.Future.
type Future[R any] = types.Future[R]

// ThreadPool runs submitted tasks on a fixed set of workers sharing one FIFO
// queue.
//
// A pool is created with New (or obtained with Default), started with Init
// and stopped with Shutdown. Tasks may be submitted as soon as the pool
// exists; they wait in the queue until workers are running. Once Shutdown
// has begun, Submit fails with ErrPoolShutdown, and every task accepted
// before that point is executed before the workers exit.
//
// After Shutdown has completed, Init may be called again to start a new set
// of workers with a fresh queue.
type ThreadPool struct {
	conf *config

	mu  sync.RWMutex
	gen *generation

	taskID    atomic.Uint64
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// generation holds the state of one Init → Shutdown lifetime.
// started and closing are guarded by ThreadPool.mu; once closing is set,
// neither field changes again.
type generation struct {
	queue   *queue.TaskQueue[*types.Task]
	group   errgroup.Group
	workers int
	started bool
	closing bool
	done    chan struct{} // Closed when all workers have finished
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Workers   int
	Pending   int
	Submitted uint64
	Completed uint64
	Failed    uint64
}

// New creates a new ThreadPool with the given options.
// This does NOT start any workers; call Init to begin executing tasks.
//
// Example:
//
//	p := pool.New(pool.WithWorkerCount(8))
//	if err := p.Init(0); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown()
//
//	f, _ := pool.Submit(p, func() (int, error) { return 6 * 7, nil })
//	v, err := f.Get()
func New(opts ...Option) *ThreadPool {
	p := &ThreadPool{
		conf: newConfig(opts...),
	}
	p.gen = p.newGeneration()
	return p
}

var (
	defaultPool *ThreadPool
	defaultOnce sync.Once
)

// Default returns the process-wide pool, creating it on first use with the
// default configuration. Concurrent first calls all receive the same
// instance. The pool is not started; call Init before relying on it.
//
// Applications that can pass a pool explicitly should prefer New.
func Default() *ThreadPool {
	defaultOnce.Do(func() {
		defaultPool = New()
	})
	return defaultPool
}

func (p *ThreadPool) newGeneration() *generation {
	return &generation{
		queue: queue.New[*types.Task](p.conf.queueCapacity),
		done:  make(chan struct{}),
	}
}

// Init starts workerCount workers. A non-positive workerCount starts the
// number configured with WithWorkerCount (DefaultWorkerCount if unset).
//
// Returns:
//   - ErrAlreadyInitialized if the pool is running and has not been shut down
//   - ErrShutdownInProgress if a previous Shutdown is still draining
//
// Both errors match ErrInvalidState.
func (p *ThreadPool) Init(workerCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	g := p.gen
	if g.closing {
		select {
		case <-g.done:
		default:
			return ErrShutdownInProgress
		}
		g = p.newGeneration()
		p.gen = g
	}

	if g.started {
		return ErrAlreadyInitialized
	}

	n := workerCount
	if n <= 0 {
		n = p.conf.workerCount
	}

	g.started = true
	g.workers = n
	for i := range n {
		g.group.Go(func() error {
			p.worker(g, i)
			return nil
		})
	}

	debugLog("started %d workers (%d tasks already queued)", n, g.queue.Len())
	return nil
}

// Shutdown stops the pool gracefully. New submissions are rejected from the
// moment it is called; every task accepted before that runs to completion,
// then all workers exit and are joined.
//
// Shutdown is idempotent and safe to call from several goroutines: the
// first call drives the shutdown and every call returns once it has
// finished. If Init was never called, queued tasks are executed by the
// shutdown itself so that none is left unresolved.
func (p *ThreadPool) Shutdown() {
	_ = p.ShutdownTimeout(0)
}

// ShutdownTimeout is like Shutdown but gives up waiting after timeout and
// returns ErrShutdownTimeout. The drain keeps running in the background; a
// later Shutdown call waits for it. A non-positive timeout waits forever.
//
// Example:
//
//	if err := p.ShutdownTimeout(5 * time.Second); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
func (p *ThreadPool) ShutdownTimeout(timeout time.Duration) error {
	g := p.beginShutdown()
	return waitUntil(g.done, timeout)
}

// beginShutdown marks the current generation as closing and, on the first
// call, closes its queue and starts the drain. It returns the generation
// being shut down.
func (p *ThreadPool) beginShutdown() *generation {
	p.mu.Lock()
	g := p.gen
	first := !g.closing
	g.closing = true
	started := g.started
	p.mu.Unlock()

	if !first {
		return g
	}

	// Closing the queue sets the shutdown flag under the same lock the
	// workers wait on and wakes all of them; each keeps popping until the
	// queue is empty.
	g.queue.Close()
	debugLog("shutdown requested with %d tasks pending", g.queue.Len())

	go func() {
		defer close(g.done)
		if !started {
			// The queue is closed, so this worker exits once it is empty.
			g.group.Go(func() error {
				p.worker(g, -1)
				return nil
			})
		}
		_ = g.group.Wait()
	}()

	return g
}

// IsShutdown reports whether Shutdown has been called on the current
// generation. It becomes false again after a successful re-Init.
func (p *ThreadPool) IsShutdown() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gen.closing
}

// PendingTaskCount returns the number of queued tasks not yet picked up by
// a worker. The value is a snapshot for diagnostics.
func (p *ThreadPool) PendingTaskCount() int {
	return p.current().queue.Len()
}

// WorkerCount returns the number of workers started by the last Init,
// or 0 if the current generation has not been started.
func (p *ThreadPool) WorkerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gen.workers
}

// Stats returns a snapshot of the pool counters. Submitted, Completed and
// Failed accumulate across generations.
func (p *ThreadPool) Stats() Stats {
	return Stats{
		Workers:   p.WorkerCount(),
		Pending:   p.PendingTaskCount(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *ThreadPool) current() *generation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gen
}

// waitUntil blocks until either the done channel is closed or the timeout is reached.
// It is used during graceful shutdown to wait for workers to complete their tasks.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-d:
		return nil
	case <-timer.C:
		return ErrShutdownTimeout
	}
}
