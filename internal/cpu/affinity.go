// Package cpu binds pool workers to operating-system threads.
//
// A worker that calls Pin is locked to its current OS thread for as long as
// it runs, which gives the pool the "one worker, one thread" model. Where the
// platform supports it, the thread is additionally restricted to a single
// logical CPU chosen round-robin from the worker index.
package cpu

import "runtime"

// NumCPU returns the number of logical CPUs available to the process.
func NumCPU() int {
	return runtime.NumCPU()
}

// coreFor maps a worker index onto a valid CPU index.
func coreFor(workerID int) int {
	n := NumCPU()
	if workerID < 0 {
		workerID = -workerID
	}
	return workerID % n
}
