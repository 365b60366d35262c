//go:build !linux && !windows

package cpu

import "runtime"

// Pin locks the calling goroutine to its OS thread.
// CPU pinning is not available on this platform, so core is always -1.
func Pin(workerID int) (release func(), core int, err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, -1, nil
}
