package types

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

// stackBufSize bounds the stack trace captured for a panicking task.
const stackBufSize = 4096

// PanicError is the failure stored in a Future when the task panicked.
type PanicError struct {
	TaskID uint64
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %d panic: %v\nstack trace:\n%s", e.TaskID, e.Value, e.Stack)
}

// Unwrap exposes the panic value when it was itself an error,
// so errors.Is and errors.As see through a panic(err).
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Task is one unit of queued work with its type erased.
//
// The invocation closure already holds the writer end of the task's Future,
// so a worker only needs to call Run. A Task runs at most once; further
// calls to Run return ErrTaskAlreadyRun without touching the result slot.
type Task struct {
	ID       uint64
	Enqueued time.Time

	invoke func() error
	ran    atomic.Bool
}

var (
	// ErrTaskAlreadyRun is returned when Run is called on a task a second time.
	ErrTaskAlreadyRun = errors.New("task already executed")

	// ErrTaskGoexit is stored in the Future of a task that called
	// runtime.Goexit (for example through testing.T.FailNow) instead of
	// returning.
	ErrTaskGoexit = errors.New("task called runtime.Goexit")
)

// NewTask boxes fn into a Task and returns it together with the Future
// that will receive fn's result. fn must not be nil.
func NewTask[R any](id uint64, fn func() (R, error)) (*Task, *Future[R]) {
	future := NewFuture[R](id)

	invoke := func() (err error) {
		var value R
		normalReturn := false
		defer func() {
			if normalReturn {
				return
			}
			var zero R
			if r := recover(); r != nil {
				buf := make([]byte, stackBufSize)
				n := runtime.Stack(buf, false)
				err = &PanicError{TaskID: id, Value: r, Stack: buf[:n]}
				future.complete(zero, err)
				return
			}
			// recover returns nil during runtime.Goexit. The goroutine keeps
			// unwinding after this, but the Future must still be resolved.
			err = ErrTaskGoexit
			future.complete(zero, err)
		}()

		value, err = fn()
		normalReturn = true
		future.complete(value, err)
		return err
	}

	return &Task{
		ID:       id,
		Enqueued: time.Now(),
		invoke:   invoke,
	}, future
}

// Run executes the task and resolves its Future. The returned error is the
// same failure delivered to the Future (nil on success); callers use it for
// bookkeeping only.
//
// If the task calls runtime.Goexit, the Future receives ErrTaskGoexit and
// Run does not return: the calling goroutine exits.
func (t *Task) Run() error {
	if !t.ran.CompareAndSwap(false, true) {
		return ErrTaskAlreadyRun
	}
	return t.invoke()
}

// Ran reports whether Run has been called.
func (t *Task) Ran() bool {
	return t.ran.Load()
}
