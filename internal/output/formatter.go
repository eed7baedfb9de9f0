// Package output renders CLI-facing text: run summaries, the live progress
// line, status tables, and run history. Colors are applied only when writing
// to a terminal.
package output

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/dugoutdata/dugout/internal/config"
	"github.com/dugoutdata/dugout/internal/engine"
	"github.com/dugoutdata/dugout/internal/hashstore"
	"github.com/dugoutdata/dugout/internal/runlog"
)

// Formatter provides the high-level interface for CLI output
type Formatter struct {
	quiet      bool
	verbose    bool
	progress   bool
	isTerminal bool

	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
}

// NewFormatter creates a formatter from output configuration
func NewFormatter(cfg config.OutputConfig) *Formatter {
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	colored := cfg.Color && isTerminal

	f := &Formatter{
		quiet:      cfg.Verbosity == "quiet",
		verbose:    cfg.Verbosity == "verbose",
		progress:   cfg.Progress && isTerminal,
		isTerminal: isTerminal,
	}

	if colored {
		f.success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		f.warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
		f.failure = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		f.header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
		f.muted = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	} else {
		plain := lipgloss.NewStyle()
		f.success, f.warning, f.failure, f.header, f.muted = plain, plain, plain, plain, plain
	}

	return f
}

// SetFlags applies command-line flag overrides
func (f *Formatter) SetFlags(verbose, quiet, noColor bool) {
	if verbose {
		f.verbose = true
		f.quiet = false
	}
	if quiet {
		f.quiet = true
		f.verbose = false
		f.progress = false
	}
	if noColor {
		plain := lipgloss.NewStyle()
		f.success, f.warning, f.failure, f.header, f.muted = plain, plain, plain, plain, plain
	}
}

// Println prints a plain line unless quiet
func (f *Formatter) Println(format string, args ...interface{}) {
	if !f.quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// Verbose prints a line only in verbose mode
func (f *Formatter) Verbose(format string, args ...interface{}) {
	if f.verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// Errorf prints an error line to stderr (always shown)
func (f *Formatter) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, f.failure.Render(fmt.Sprintf(format, args...)))
}

// Warningf prints a warning line unless quiet
func (f *Formatter) Warningf(format string, args ...interface{}) {
	if !f.quiet {
		fmt.Println(f.warning.Render(fmt.Sprintf(format, args...)))
	}
}

// Header prints a section header
func (f *Formatter) Header(title string) {
	if !f.quiet {
		fmt.Println(f.header.Render(title))
	}
}

// Progress renders the live progress line for a running batch. It rewrites
// the same terminal line; callers must emit ProgressDone before any other
// output.
func (f *Formatter) Progress(p engine.Progress) {
	if !f.progress || f.quiet || p.Total == 0 {
		return
	}

	pct := float64(p.Done) / float64(p.Total) * 100

	eta := "-"
	if p.Done > 0 && p.Elapsed > 0 {
		rate := float64(p.Done) / p.Elapsed.Seconds()
		if rate > 0 {
			remaining := time.Duration(float64(p.Total-p.Done)/rate) * time.Second
			eta = remaining.Round(time.Second).String()
		}
	}

	fmt.Printf("\rProgress: %5.1f%% (%d/%d) | updated %d  skipped %d  failed %d | ETA %s ",
		pct, p.Done, p.Total, p.Updated, p.Skipped, p.Failed, eta)
}

// ProgressDone terminates the progress line
func (f *Formatter) ProgressDone() {
	if f.progress && !f.quiet {
		fmt.Println()
	}
}

// Summary prints the batch outcome for one collector
func (f *Formatter) Summary(name string, o *engine.BatchOutcome) {
	if f.quiet {
		return
	}

	line := fmt.Sprintf("%s: %s updated, %s skipped, %s failed in %s",
		f.header.Render(name),
		f.success.Render(fmt.Sprintf("%d", o.Updated)),
		f.muted.Render(fmt.Sprintf("%d", o.Skipped)),
		f.failure.Render(fmt.Sprintf("%d", o.Failed)),
		o.Finished.Sub(o.Started).Round(time.Millisecond))
	if o.Cancelled {
		line += f.warning.Render(" (cancelled)")
	}
	fmt.Println(line)

	for _, u := range o.FailedUnits() {
		f.Errorf("  %s: %s: %v", u.Key, u.Reason, u.Err)
	}

	if f.verbose {
		for _, u := range o.Units {
			if u.Status != engine.StatusFailed {
				fmt.Printf("  %s %s (%s)\n", f.muted.Render(string(u.Status)), u.Key, u.Reason)
			}
		}
	}
}

// Status prints a per-namespace summary of stored hash sidecars
func (f *Formatter) Status(namespace string, records []hashstore.Record) {
	if len(records) == 0 {
		f.Println("%s: no collected units", f.header.Render(namespace))
		return
	}

	var totalBytes int64
	var latest time.Time
	for _, r := range records {
		totalBytes += r.SizeBytes
		if r.ComputedAt.After(latest) {
			latest = r.ComputedAt
		}
	}

	f.Println("%s: %d units, %.1f KiB, last sync %s",
		f.header.Render(namespace),
		len(records),
		float64(totalBytes)/1024,
		latest.Local().Format(time.RFC3339))

	if f.verbose {
		for _, r := range records {
			fmt.Printf("  %v  %s  %s\n", r.UnitKey,
				f.muted.Render(r.ContentHash[:min(8, len(r.ContentHash))]),
				r.ComputedAt.Local().Format(time.RFC3339))
		}
	}
}

// Runs prints recent run history, newest first
func (f *Formatter) Runs(runs []runlog.Run) {
	if len(runs) == 0 {
		f.Println("no recorded runs")
		return
	}

	f.Header(fmt.Sprintf("%-20s %-12s %8s %8s %8s %10s", "started", "collector", "updated", "skipped", "failed", "duration"))
	for _, r := range runs {
		line := fmt.Sprintf("%-20s %-12s %8d %8d %8d %10s",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Collector, r.Updated, r.Skipped, r.Failed,
			r.Duration().Round(time.Millisecond))
		if r.Failed > 0 {
			line = f.failure.Render(line)
		}
		fmt.Println(line)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
