// Package scan drives a port scan over a worker pool: one probe task per
// port, results collected from the futures in port order.
package scan

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/utkarsh5026/threadpool/internal/probe"
	"github.com/utkarsh5026/threadpool/pool"
)

// CheckFunc probes a single target. (*probe.Prober).Check satisfies it.
type CheckFunc func(probe.Target) (probe.Result, error)

// Report is the outcome of one scan.
type Report struct {
	Host    string
	Results []probe.Result
	// Errors holds probes that could not be carried out, keyed by port.
	Errors  map[int]error
	Elapsed time.Duration
}

// OpenPorts returns the open ports in ascending order.
func (r *Report) OpenPorts() []int {
	var open []int
	for _, res := range r.Results {
		if res.Open() {
			open = append(open, res.Target.Port)
		}
	}
	return open
}

// Scanner submits probes to a pool.
type Scanner struct {
	pool     *pool.ThreadPool
	check    CheckFunc
	progress io.Writer
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithProgress draws a progress bar on w while results are collected.
func WithProgress(w io.Writer) Option {
	return func(s *Scanner) {
		s.progress = w
	}
}

// New returns a Scanner that runs check on p.
func New(p *pool.ThreadPool, check CheckFunc, opts ...Option) *Scanner {
	s := &Scanner{pool: p, check: check}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run submits one probe per port and waits for all of them. A probe that
// fails is recorded in Report.Errors; Run itself fails only when a task
// cannot be submitted.
func (s *Scanner) Run(host string, ports []int) (*Report, error) {
	if len(ports) == 0 {
		return nil, ErrEmptyPortList
	}

	start := time.Now()
	futures := make([]*pool.Future[probe.Result], 0, len(ports))
	for _, port := range ports {
		f, err := pool.SubmitArg(s.pool, s.check, probe.Target{Host: host, Port: port})
		if err != nil {
			return nil, fmt.Errorf("submit probe for port %d: %w", port, err)
		}
		futures = append(futures, f)
	}

	bar := s.newProgressBar(len(futures))

	report := &Report{
		Host:    host,
		Results: make([]probe.Result, 0, len(futures)),
		Errors:  make(map[int]error),
	}
	for i, f := range futures {
		res, err := f.Get()
		if err != nil {
			var pe *pool.PanicError
			if errors.As(err, &pe) {
				err = fmt.Errorf("probe panicked: %v", pe.Value)
			}
			report.Errors[ports[i]] = err
			res.Target = probe.Target{Host: host, Port: ports[i]}
		}
		report.Results = append(report.Results, res)

		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

func (s *Scanner) newProgressBar(n int) *progressbar.ProgressBar {
	if s.progress == nil {
		return nil
	}

	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Probing ports"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("ports"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(s.progress),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
