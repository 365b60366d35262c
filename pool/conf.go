package pool

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultWorkerCount is the number of workers started by Init(0) when no
// WithWorkerCount option was given. Pools are typically used for I/O-bound
// work such as network probes, so the default is well above GOMAXPROCS.
const DefaultWorkerCount = 32

// TaskInfo describes one task execution. It is passed to the
// WithBeforeTaskStart and WithOnTaskEnd hooks.
type TaskInfo struct {
	// ID is the task's submission sequence number (starting at 1).
	ID uint64
	// WorkerID identifies the worker running the task (0-based).
	WorkerID int
	// Waited is the time the task spent in the queue.
	Waited time.Duration
	// Elapsed is the run time of the task. Zero in BeforeTaskStart.
	Elapsed time.Duration
	// Err is the failure delivered to the task's Future. Nil in BeforeTaskStart.
	Err error
}

// Option is a functional option for configuring a ThreadPool.
type Option func(*config)

type config struct {
	workerCount   int
	queueCapacity int
	rateLimiter   *rate.Limiter
	cpuAffinity   bool

	beforeTaskStart func(TaskInfo)
	onTaskEnd       func(TaskInfo)
	onPanic         func(taskID uint64, value any)
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		workerCount: DefaultWorkerCount,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// WithWorkerCount sets the number of workers Init starts when called with a
// non-positive count. If not specified, defaults to DefaultWorkerCount.
func WithWorkerCount(count int) Option {
	return func(cfg *config) {
		if count > 0 {
			cfg.workerCount = count
		}
	}
}

// WithQueueCapacity sets the initial capacity of the task queue.
// The queue grows as needed, so this only avoids early reallocations.
func WithQueueCapacity(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.queueCapacity = size
		}
	}
}

// WithRateLimit caps how fast workers start tasks.
// tasksPerSecond specifies the maximum number of tasks started per second.
// burst specifies how many tasks may start back to back.
// This is useful for not overwhelming remote hosts when tasks do network I/O.
// If not specified, no rate limiting is applied.
//
// Example:
//
//	WithRateLimit(200, 20) // Start at most 200 tasks/sec, 20 at once
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithCPUAffinity locks every worker to its own OS thread and, where the
// platform allows it, pins that thread to one CPU (worker i → CPU i mod NumCPU).
func WithCPUAffinity() Option {
	return func(cfg *config) {
		cfg.cpuAffinity = true
	}
}

// WithBeforeTaskStart registers a hook called on the worker right before a
// task runs. Hooks run synchronously and should be fast.
func WithBeforeTaskStart(fn func(TaskInfo)) Option {
	return func(cfg *config) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook called on the worker after a task's Future
// has been resolved. info.Err carries the task's failure, if any.
func WithOnTaskEnd(fn func(TaskInfo)) Option {
	return func(cfg *config) {
		cfg.onTaskEnd = fn
	}
}

// WithPanicHandler registers a handler invoked with the recovered value when
// a task panics. The panic is still delivered to the Future as a
// *types.PanicError; the handler is for logging and alerting.
func WithPanicHandler(fn func(taskID uint64, value any)) Option {
	return func(cfg *config) {
		cfg.onPanic = fn
	}
}
