package scan

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrEmptyPortList is returned when a port list contains no ports.
var ErrEmptyPortList = errors.New("empty port list")

const (
	minPort = 1
	maxPort = 65535
)

// ParsePorts parses a comma-separated list of ports and inclusive ranges,
// such as "21-1023,8080". The result is sorted and free of duplicates.
func ParsePorts(list string) ([]int, error) {
	var ports []int

	for field := range strings.SplitSeq(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(field, "-")
		start, err := parsePort(lo)
		if err != nil {
			return nil, err
		}
		end := start
		if isRange {
			if end, err = parsePort(hi); err != nil {
				return nil, err
			}
			if end < start {
				return nil, fmt.Errorf("invalid port range %q: end before start", field)
			}
		}

		for p := start; p <= end; p++ {
			ports = append(ports, p)
		}
	}

	if len(ports) == 0 {
		return nil, ErrEmptyPortList
	}

	slices.Sort(ports)
	return slices.Compact(ports), nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if p < minPort || p > maxPort {
		return 0, fmt.Errorf("invalid port %d: must be between %d and %d", p, minPort, maxPort)
	}
	return p, nil
}
