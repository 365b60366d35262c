//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore restricts the calling OS thread to cpuID.
// Must be called after runtime.LockOSThread().
func pinToCore(cpuID int) error {
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	return unix.SchedSetaffinity(0, &mask) // 0 = current thread
}

// Pin locks the calling goroutine to its OS thread and pins that thread to
// the core derived from workerID. The returned release function must be
// deferred by the worker. If pinning fails the goroutine is still locked to
// its thread and core is -1; the error is informational.
func Pin(workerID int) (release func(), core int, err error) {
	runtime.LockOSThread()

	core = coreFor(workerID)
	if err = pinToCore(core); err != nil {
		return runtime.UnlockOSThread, -1, err
	}

	// Leave the goroutine locked: when the worker exits, the runtime
	// terminates the pinned thread instead of reusing it elsewhere.
	return func() {}, core, nil
}
