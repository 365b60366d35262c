package pool

import (
	"context"
	"errors"
	"time"

	"github.com/utkarsh5026/threadpool/internal/cpu"
	"github.com/utkarsh5026/threadpool/internal/types"
)

// worker is the loop run by each worker goroutine of a generation.
//
// It blocks in PopBlocking until a task is available or the queue has been
// closed and emptied, in which case it returns. A task's failure never ends
// the loop: errors and panics are captured into the task's Future. A task
// that calls runtime.Goexit does end this goroutine, so a replacement is
// started in the same errgroup before it exits; group.Wait therefore cannot
// return while the queue still holds tasks.
//
// workerID is -1 for the goroutine that drains a pool Shutdown before it was
// ever started.
func (p *ThreadPool) worker(g *generation, workerID int) {
	if p.conf.cpuAffinity && workerID >= 0 {
		release, core, err := cpu.Pin(workerID)
		defer release()
		if err != nil {
			debugLog("worker %d: cpu pinning failed: %v", workerID, err)
		} else {
			debugLog("worker %d: pinned to cpu %d", workerID, core)
		}
	}

	drained := false
	defer func() {
		if drained {
			return
		}
		debugLog("worker %d: task called runtime.Goexit, starting replacement", workerID)
		g.group.Go(func() error {
			p.worker(g, workerID)
			return nil
		})
	}()

	for {
		t, ok := g.queue.PopBlocking()
		if !ok {
			debugLog("worker %d: queue drained, exiting", workerID)
			drained = true
			return
		}
		p.execute(t, workerID)
	}
}

// execute runs a single task with rate limiting, hooks and bookkeeping.
//
// Each task is popped by exactly one worker and execute is the only caller
// of Run, so a task is never run twice here. A task that was already run
// elsewhere is skipped without touching the counters or hooks.
func (p *ThreadPool) execute(t *types.Task, workerID int) {
	if t.Ran() {
		return
	}

	if p.conf.rateLimiter != nil {
		// The background context never ends, and WithRateLimit guarantees
		// burst >= 1, so Wait cannot fail here.
		_ = p.conf.rateLimiter.Wait(context.Background())
	}

	info := TaskInfo{
		ID:       t.ID,
		WorkerID: workerID,
		Waited:   time.Since(t.Enqueued),
	}
	p.callHook(p.conf.beforeTaskStart, info)

	start := time.Now()
	// Stays ErrTaskGoexit if Run never returns; the deferred bookkeeping
	// still runs while the goroutine unwinds.
	err := ErrTaskGoexit
	defer func() {
		if errors.Is(err, types.ErrTaskAlreadyRun) {
			return
		}
		info.Elapsed = time.Since(start)
		info.Err = err

		if err != nil {
			p.failed.Add(1)
			if pe, ok := err.(*types.PanicError); ok && p.conf.onPanic != nil {
				p.safeCall(t.ID, func() { p.conf.onPanic(t.ID, pe.Value) })
			}
		}
		p.completed.Add(1)

		p.callHook(p.conf.onTaskEnd, info)
	}()

	err = t.Run()
}

func (p *ThreadPool) callHook(hook func(TaskInfo), info TaskInfo) {
	if hook == nil {
		return
	}
	p.safeCall(info.ID, func() { hook(info) })
}

// safeCall shields the worker loop from panics in user-supplied hooks.
func (p *ThreadPool) safeCall(taskID uint64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			debugLog("hook panicked on task %d: %v", taskID, r)
		}
	}()
	fn()
}
