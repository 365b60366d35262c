package scan

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/utkarsh5026/threadpool/internal/probe"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

// Render writes the report as a table. Closed and filtered ports are listed
// only when showClosed is set; failed probes are always listed.
func Render(w io.Writer, r *Report, showClosed bool) error {
	_, _ = bold.Fprintf(w, "Scan results for %s\n", r.Host)

	table := tablewriter.NewWriter(w)
	table.Header("Port", "State", "Attempts", "Latency", "Detail")

	rows := 0
	for _, res := range r.Results {
		port := res.Target.Port
		err, failed := r.Errors[port]
		if !failed && !res.Open() && !showClosed {
			continue
		}

		state := stateString(res.State)
		detail := ""
		switch {
		case failed:
			state = red.Sprint("error")
			detail = err.Error()
		case !res.Open() && res.Err != nil:
			detail = res.Err.Error()
		}

		if err := table.Append(
			strconv.Itoa(port),
			state,
			strconv.Itoa(res.Attempts),
			res.Latency.Round(time.Millisecond).String(),
			detail,
		); err != nil {
			return fmt.Errorf("append row for port %d: %w", port, err)
		}
		rows++
	}

	if rows > 0 {
		if err := table.Render(); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
	} else {
		_, _ = fmt.Fprintln(w, "No open ports found.")
	}

	open := len(r.OpenPorts())
	_, _ = fmt.Fprintf(w, "\n%d open, %d scanned, %d failed\n", open, len(r.Results), len(r.Errors))
	_, _ = bold.Fprintf(w, "Elapsed: %.3fs\n", r.Elapsed.Seconds())
	return nil
}

func stateString(s probe.State) string {
	switch s {
	case probe.StateOpen:
		return green.Sprint(s.String())
	case probe.StateFiltered:
		return yellow.Sprint(s.String())
	default:
		return s.String()
	}
}
