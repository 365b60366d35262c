//go:build windows

package cpu

import (
	"runtime"

	"golang.org/x/sys/windows"
)

var (
	kernel32              = windows.NewLazySystemDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
)

// pinToCore restricts the calling OS thread to cpuID.
// Must be called after runtime.LockOSThread().
func pinToCore(cpuID int) error {
	mask := uintptr(1) << uint(cpuID)

	prev, _, err := setThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if prev == 0 {
		return err
	}
	return nil
}

// Pin locks the calling goroutine to its OS thread and pins that thread to
// the core derived from workerID. See the linux implementation for details.
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
