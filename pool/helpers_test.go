package pool

import (
	"fmt"
	"testing"
)

// workerCounts are the pool sizes every behavioural test is run against.
var workerCounts = []int{1, 4, 32}

// runWorkerCountTest runs testFunc once per worker count as a subtest,
// handing it a started pool that is shut down afterwards.
func runWorkerCountTest(t *testing.T, testFunc func(t *testing.T, p *ThreadPool), opts ...Option) {
	t.Helper()

	for _, n := range workerCounts {
		t.Run(fmt.Sprintf("workers=%d", n), func(t *testing.T) {
			p := New(append([]Option{WithWorkerCount(n)}, opts...)...)
			if err := p.Init(0); err != nil {
				t.Fatalf("init failed: %v", err)
			}
			defer p.Shutdown()

			testFunc(t, p)
		})
	}
}

// startedPool returns a running pool with n workers that is shut down when
// the test ends.
func startedPool(t *testing.T, n int, opts ...Option) *ThreadPool {
	t.Helper()

	p := New(opts...)
	if err := p.Init(n); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	t.Cleanup(p.Shutdown)
	return p
}
