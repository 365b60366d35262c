// Package probe implements a TCP-connect reachability check: a port is open
// when a TCP handshake with host:port completes within the timeout.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/utkarsh5026/threadpool/internal/algorithms"
	"golang.org/x/net/proxy"
)

const (
	DefaultTimeout        = time.Second
	DefaultBackoffInitial = 50 * time.Millisecond
	DefaultBackoffMax     = time.Second
)

// ErrInvalidPort is returned for ports outside 1..65535.
var ErrInvalidPort = errors.New("port out of range")

var errNoAddresses = errors.New("no addresses to dial")

// State is the outcome of a probe.
type State int

const (
	// StateClosed means the host actively refused the connection.
	StateClosed State = iota
	// StateOpen means a TCP handshake completed.
	StateOpen
	// StateFiltered means no answer arrived before the timeout.
	StateFiltered
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFiltered:
		return "filtered"
	default:
		return "closed"
	}
}

// Target is one host:port pair to probe.
type Target struct {
	Host string
	Port int
}

// Addr returns the target in host:port form, bracketing IPv6 literals.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Result describes a finished probe.
type Result struct {
	Target   Target
	State    State
	Attempts int
	Latency  time.Duration
	// Err is the last dial error, if the port was not found open.
	Err error
}

// Open reports whether the port accepted a connection.
func (r Result) Open() bool {
	return r.State == StateOpen
}

// ContextDialer is satisfied by *net.Dialer and by the SOCKS5 dialer from
// golang.org/x/net/proxy.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Prober runs TCP-connect probes. It is safe for concurrent use; each
// Check builds its own backoff state.
type Prober struct {
	timeout        time.Duration
	retries        int
	backoffType    algorithms.BackoffType
	backoffInitial time.Duration
	backoffMax     time.Duration
	socks5         string

	dialer   ContextDialer
	resolver Resolver
	// viaProxy leaves name resolution to the proxy.
	viaProxy bool
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout bounds every connection attempt.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRetries sets how many extra attempts are made after a timeout.
// A refused connection is never retried.
func WithRetries(n int) Option {
	return func(p *Prober) {
		if n >= 0 {
			p.retries = n
		}
	}
}

// WithBackoff selects the delay policy between retries.
func WithBackoff(kind algorithms.BackoffType, initial, maxDelay time.Duration) Option {
	return func(p *Prober) {
		p.backoffType = kind
		if initial > 0 {
			p.backoffInitial = initial
		}
		if maxDelay > 0 {
			p.backoffMax = maxDelay
		}
	}
}

// WithSOCKS5 routes every probe through the SOCKS5 proxy at addr.
func WithSOCKS5(addr string) Option {
	return func(p *Prober) {
		p.socks5 = addr
	}
}

// WithDialer replaces the dialer. Mostly useful in tests.
func WithDialer(d ContextDialer) Option {
	return func(p *Prober) {
		p.dialer = d
	}
}

// WithResolver replaces the host resolver.
func WithResolver(r Resolver) Option {
	return func(p *Prober) {
		p.resolver = r
	}
}

// New builds a Prober. It fails only if the SOCKS5 dialer cannot be built.
func New(opts ...Option) (*Prober, error) {
	p := &Prober{
		timeout:        DefaultTimeout,
		backoffType:    algorithms.BackoffExponential,
		backoffInitial: DefaultBackoffInitial,
		backoffMax:     DefaultBackoffMax,
		resolver:       net.DefaultResolver,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.dialer != nil {
		return p, nil
	}

	direct := &net.Dialer{Timeout: p.timeout}
	if p.socks5 == "" {
		p.dialer = direct
		return p, nil
	}

	d, err := proxy.SOCKS5("tcp", p.socks5, nil, direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer %s: %w", p.socks5, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 dialer %s does not support contexts", p.socks5)
	}
	p.dialer = cd
	p.viaProxy = true
	return p, nil
}

// Timeout returns the per-attempt connect timeout.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Check probes t with a background context. Its signature lets it be
// submitted to a pool with pool.SubmitArg.
func (p *Prober) Check(t Target) (Result, error) {
	return p.CheckContext(context.Background(), t)
}

// CheckContext resolves t.Host and tries to connect to each of its
// addresses in turn until one accepts. Attempts that time out are retried
// with backoff up to the configured number of retries.
//
// The returned error is non-nil only when the probe could not be carried
// out at all (bad port, unresolvable host, cancelled ctx). An unreachable
// port is a Result with StateClosed or StateFiltered and a nil error.
func (p *Prober) CheckContext(ctx context.Context, t Target) (Result, error) {
	res := Result{Target: t}
	if t.Port < 1 || t.Port > 65535 {
		return res, fmt.Errorf("%w: %d", ErrInvalidPort, t.Port)
	}

	start := time.Now()
	addrs, err := p.resolve(ctx, t.Host)
	if err != nil {
		res.Err = err
		res.Latency = time.Since(start)
		return res, fmt.Errorf("resolve %s: %w", t.Host, err)
	}

	backoff := algorithms.NewBackoff(p.backoffType, p.backoffInitial, p.backoffMax)
	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1

		err := p.dialAny(ctx, addrs, t.Port)
		if err == nil {
			res.State = StateOpen
			res.Err = nil
			res.Latency = time.Since(start)
			return res, nil
		}

		res.Err = err
		res.State = classify(err)
		if res.State != StateFiltered || attempt >= p.retries {
			res.Latency = time.Since(start)
			return res, nil
		}

		timer := time.NewTimer(backoff.Next(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Latency = time.Since(start)
			return res, ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Prober) resolve(ctx context.Context, host string) ([]string, error) {
	if p.viaProxy || net.ParseIP(host) != nil {
		return []string{host}, nil
	}
	return p.resolver.LookupHost(ctx, host)
}

// dialAny tries every address and returns nil as soon as one connects.
// Otherwise it returns the most informative error seen: a timeout wins over
// a refusal, so a host that is filtered on any address is retried.
func (p *Prober) dialAny(ctx context.Context, addrs []string, port int) error {
	var lastErr error
	for _, addr := range addrs {
		actx, cancel := context.WithTimeout(ctx, p.timeout)
		conn, err := p.dialer.DialContext(actx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
		cancel()
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if lastErr == nil || classify(err) == StateFiltered {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = errNoAddresses
	}
	return lastErr
}

// classify maps a dial error onto a port state.
func classify(err error) State {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return StateClosed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StateFiltered
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return StateFiltered
	}
	return StateClosed
}
