// Package config loads port-scan settings from YAML, TOML or JSON files and
// turns them into pool and probe options.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/utkarsh5026/threadpool/internal/algorithms"
	"github.com/utkarsh5026/threadpool/internal/probe"
	"github.com/utkarsh5026/threadpool/internal/scan"
	"github.com/utkarsh5026/threadpool/pool"
)

// ErrUnsupportedFormat is returned for config files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")

const (
	DefaultHost    = "45.33.32.156"
	DefaultPorts   = "21-1023"
	DefaultTimeout = time.Second
)

// FileConfig is the on-disk layout. Every format uses the same keys.
type FileConfig struct {
	Scan  ScanSection  `yaml:"scan" toml:"scan" json:"scan"`
	Pool  PoolSection  `yaml:"pool" toml:"pool" json:"pool"`
	Probe ProbeSection `yaml:"probe" toml:"probe" json:"probe"`
}

// ScanSection selects what to scan.
type ScanSection struct {
	Host       string `yaml:"host" toml:"host" json:"host"`
	Ports      string `yaml:"ports" toml:"ports" json:"ports"`
	Timeout    string `yaml:"timeout" toml:"timeout" json:"timeout"`
	ShowClosed bool   `yaml:"show_closed" toml:"show_closed" json:"show_closed"`
}

// PoolSection configures the worker pool.
type PoolSection struct {
	Workers     int     `yaml:"workers" toml:"workers" json:"workers"`
	RateLimit   float64 `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`
	Burst       int     `yaml:"burst" toml:"burst" json:"burst"`
	CPUAffinity bool    `yaml:"cpu_affinity" toml:"cpu_affinity" json:"cpu_affinity"`
}

// ProbeSection configures each probe's retry behaviour.
type ProbeSection struct {
	Retries        int    `yaml:"retries" toml:"retries" json:"retries"`
	Backoff        string `yaml:"backoff" toml:"backoff" json:"backoff"`
	BackoffInitial string `yaml:"backoff_initial" toml:"backoff_initial" json:"backoff_initial"`
	BackoffMax     string `yaml:"backoff_max" toml:"backoff_max" json:"backoff_max"`
	SOCKS5         string `yaml:"socks5" toml:"socks5" json:"socks5"`
}

// ScanConfig is the resolved configuration used by the scanner.
type ScanConfig struct {
	Host       string
	Ports      []int
	PortList   string
	Timeout    time.Duration
	ShowClosed bool

	Workers     int
	RateLimit   float64
	Burst       int
	CPUAffinity bool

	Retries        int
	Backoff        algorithms.BackoffType
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	SOCKS5         string
}

// Default returns the settings used when no file is given.
func Default() ScanConfig {
	ports, _ := scan.ParsePorts(DefaultPorts)
	return ScanConfig{
		Host:           DefaultHost,
		Ports:          ports,
		PortList:       DefaultPorts,
		Timeout:        DefaultTimeout,
		Workers:        pool.DefaultWorkerCount,
		Burst:          1,
		Backoff:        algorithms.BackoffExponential,
		BackoffInitial: probe.DefaultBackoffInitial,
		BackoffMax:     probe.DefaultBackoffMax,
	}
}

// LoadFile reads a config file, choosing the parser by extension
// (.yaml/.yml, .toml or .json).
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	return &cfg, nil
}

// Validate checks value ranges that do not need parsing.
func (f *FileConfig) Validate() error {
	if f.Pool.Workers < 0 {
		return errors.New("pool.workers must be non-negative")
	}
	if f.Pool.RateLimit < 0 {
		return errors.New("pool.rate_limit must be non-negative")
	}
	if f.Pool.Burst < 0 {
		return errors.New("pool.burst must be non-negative")
	}
	if f.Probe.Retries < 0 {
		return errors.New("probe.retries must be non-negative")
	}
	return nil
}

// ToScanConfig overlays the file's values on Default. Empty and zero
// values keep the defaults.
func (f *FileConfig) ToScanConfig() (ScanConfig, error) {
	cfg := Default()

	if err := f.Validate(); err != nil {
		return cfg, err
	}

	if f.Scan.Host != "" {
		cfg.Host = f.Scan.Host
	}
	if f.Scan.Ports != "" {
		ports, err := scan.ParsePorts(f.Scan.Ports)
		if err != nil {
			return cfg, fmt.Errorf("invalid ports: %w", err)
		}
		cfg.Ports = ports
		cfg.PortList = f.Scan.Ports
	}
	if err := parseDuration(f.Scan.Timeout, &cfg.Timeout); err != nil {
		return cfg, fmt.Errorf("invalid timeout: %w", err)
	}
	cfg.ShowClosed = f.Scan.ShowClosed

	if f.Pool.Workers > 0 {
		cfg.Workers = f.Pool.Workers
	}
	cfg.RateLimit = f.Pool.RateLimit
	if f.Pool.Burst > 0 {
		cfg.Burst = f.Pool.Burst
	}
	cfg.CPUAffinity = f.Pool.CPUAffinity

	cfg.Retries = f.Probe.Retries
	kind, err := algorithms.ParseBackoffType(f.Probe.Backoff)
	if err != nil {
		return cfg, err
	}
	cfg.Backoff = kind
	if err := parseDuration(f.Probe.BackoffInitial, &cfg.BackoffInitial); err != nil {
		return cfg, fmt.Errorf("invalid backoff_initial: %w", err)
	}
	if err := parseDuration(f.Probe.BackoffMax, &cfg.BackoffMax); err != nil {
		return cfg, fmt.Errorf("invalid backoff_max: %w", err)
	}
	cfg.SOCKS5 = f.Probe.SOCKS5

	return cfg, nil
}

// PoolOptions converts the pool settings into pool options.
func (c ScanConfig) PoolOptions() []pool.Option {
	opts := []pool.Option{pool.WithWorkerCount(c.Workers)}
	if c.RateLimit > 0 {
		opts = append(opts, pool.WithRateLimit(c.RateLimit, max(c.Burst, 1)))
	}
	if c.CPUAffinity {
		opts = append(opts, pool.WithCPUAffinity())
	}
	return opts
}

// ProbeOptions converts the probe settings into probe options.
func (c ScanConfig) ProbeOptions() []probe.Option {
	opts := []probe.Option{
		probe.WithTimeout(c.Timeout),
		probe.WithRetries(c.Retries),
		probe.WithBackoff(c.Backoff, c.BackoffInitial, c.BackoffMax),
	}
	if c.SOCKS5 != "" {
		opts = append(opts, probe.WithSOCKS5(c.SOCKS5))
	}
	return opts
}

func parseDuration(s string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", s)
	}
	*dst = d
	return nil
}
