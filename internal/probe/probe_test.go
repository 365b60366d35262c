package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/utkarsh5026/threadpool/internal/algorithms"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// scriptedDialer answers per address and counts calls.
type scriptedDialer struct {
	mu      sync.Mutex
	answers map[string]error
	calls   []string
}

func (d *scriptedDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	d.mu.Lock()
	d.calls = append(d.calls, address)
	err, ok := d.answers[address]
	d.mu.Unlock()

	if !ok {
		return nil, timeoutError{}
	}
	if err != nil {
		return nil, err
	}
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

type staticResolver struct {
	addrs []string
	err   error
}

func (r staticResolver) LookupHost(context.Context, string) ([]string, error) {
	return r.addrs, r.err
}

func listenLocal(t *testing.T) (port int, closeFn func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, func() { _ = ln.Close() }
}

func TestCheck_OpenPort(t *testing.T) {
	port, stop := listenLocal(t)
	defer stop()

	p, err := New(WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Check(Target{Host: "127.0.0.1", Port: port})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Open() {
		t.Errorf("expected open, got %v (%v)", res.State, res.Err)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
	if res.Err != nil {
		t.Errorf("open result should carry no error, got %v", res.Err)
	}
}

func TestCheck_ClosedPort(t *testing.T) {
	port, stop := listenLocal(t)
	stop()

	p, err := New(WithTimeout(time.Second), WithRetries(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Check(Target{Host: "127.0.0.1", Port: port})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Open() {
		t.Fatal("expected port to be reported closed")
	}
	if res.State != StateClosed {
		t.Errorf("expected closed, got %v", res.State)
	}
	if res.Attempts != 1 {
		t.Errorf("refused connections must not be retried, got %d attempts", res.Attempts)
	}
}

func TestCheck_RetriesTimeouts(t *testing.T) {
	d := &scriptedDialer{answers: map[string]error{}}
	p, err := New(
		WithDialer(d),
		WithRetries(2),
		WithBackoff(algorithms.BackoffExponential, time.Millisecond, 5*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Check(Target{Host: "10.0.0.1", Port: 443})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateFiltered {
		t.Errorf("expected filtered, got %v", res.State)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	if len(d.calls) != 3 {
		t.Errorf("expected 3 dials, got %d", len(d.calls))
	}
}

func TestCheck_TriesEveryAddress(t *testing.T) {
	d := &scriptedDialer{answers: map[string]error{
		"192.0.2.1:80": syscall.ECONNREFUSED,
		"192.0.2.2:80": nil,
	}}
	p, err := New(
		WithDialer(d),
		WithResolver(staticResolver{addrs: []string{"192.0.2.1", "192.0.2.2"}}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Check(Target{Host: "example.test", Port: 80})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Open() {
		t.Errorf("expected open via second address, got %v", res.State)
	}
	if len(d.calls) != 2 {
		t.Errorf("expected 2 dials, got %v", d.calls)
	}
}

func TestCheck_Errors(t *testing.T) {
	resolveErr := errors.New("no such host")

	tests := []struct {
		name    string
		opts    []Option
		target  Target
		wantErr error
	}{
		{
			name:    "port zero",
			target:  Target{Host: "127.0.0.1", Port: 0},
			wantErr: ErrInvalidPort,
		},
		{
			name:    "port too large",
			target:  Target{Host: "127.0.0.1", Port: 70000},
			wantErr: ErrInvalidPort,
		},
		{
			name:    "resolution failure",
			opts:    []Option{WithResolver(staticResolver{err: resolveErr})},
			target:  Target{Host: "nowhere.test", Port: 80},
			wantErr: resolveErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(append([]Option{WithDialer(&scriptedDialer{})}, tt.opts...)...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			res, err := p.Check(tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if res.Open() {
				t.Error("failed probe must not report open")
			}
		})
	}
}

func TestCheck_ContextCancelledDuringBackoff(t *testing.T) {
	p, err := New(
		WithDialer(&scriptedDialer{answers: map[string]error{}}),
		WithRetries(5),
		WithBackoff(algorithms.BackoffExponential, time.Second, time.Second),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := p.CheckContext(ctx, Target{Host: "10.0.0.1", Port: 22})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", res.Attempts)
	}
}

func TestNew_SOCKS5(t *testing.T) {
	p, err := New(WithSOCKS5("127.0.0.1:1080"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !p.viaProxy {
		t.Error("expected proxy mode")
	}

	addrs, err := p.resolve(context.Background(), "scanme.example")
	if err != nil || len(addrs) != 1 || addrs[0] != "scanme.example" {
		t.Errorf("proxy mode should pass host names through, got %v, %v", addrs, err)
	}
}

func TestCheck_Concurrent(t *testing.T) {
	port, stop := listenLocal(t)
	defer stop()

	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var open atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, err := p.Check(Target{Host: "127.0.0.1", Port: port}); err == nil && res.Open() {
				open.Add(1)
			}
		}()
	}
	wg.Wait()

	if open.Load() != 16 {
		t.Errorf("expected 16 open results, got %d", open.Load())
	}
}

func TestTargetAddr(t *testing.T) {
	tests := []struct {
		target Target
		want   string
	}{
		{Target{Host: "127.0.0.1", Port: 80}, "127.0.0.1:80"},
		{Target{Host: "::1", Port: 443}, "[::1]:443"},
		{Target{Host: "scanme.example", Port: 22}, "scanme.example:22"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.want), func(t *testing.T) {
			if got := tt.target.Addr(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateOpen:     "open",
		StateClosed:   "closed",
		StateFiltered: "filtered",
	} {
		if state.String() != want {
			t.Errorf("expected %s, got %s", want, state.String())
		}
	}
}
