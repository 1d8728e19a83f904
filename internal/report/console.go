package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Console prints per-step lines as results arrive and a summary table once
// the suite completes. Its failure tally is authoritative for the process
// exit code.
type Console struct {
	out     io.Writer
	verbose bool

	mu      sync.Mutex
	passed  int
	failed  int
	start   time.Time
	slowest Result
}

// NewConsole creates a console reporter writing to out.
func NewConsole(out io.Writer, verbose bool) *Console {
	return &Console{
		out:     out,
		verbose: verbose,
		start:   time.Now(),
	}
}

// Record prints the step outcome and updates the tally.
func (c *Console) Record(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if result.Success {
		c.passed++
	} else {
		c.failed++
	}
	if result.Latency > c.slowest.Latency {
		c.slowest = result
	}

	if result.Success {
		if c.verbose {
			fmt.Fprintf(c.out, "  %s %s %s\n",
				text.FgGreen.Sprint("✓"), result.Name, text.Faint.Sprintf("(%s)", formatLatency(result.Latency)))
		}
		return
	}

	// Failures always print, verbose or not.
	fmt.Fprintf(c.out, "  %s %s\n", text.FgRed.Sprint("✗"), result.Name)
	fmt.Fprintf(c.out, "    %s\n", text.FgRed.Sprintf("→ %s", result.Err))
}

// Finalize renders the suite summary table.
func (c *Console) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.AppendHeader(table.Row{"Total", "Passed", "Failed", "Duration"})
	t.AppendRow(table.Row{
		c.passed + c.failed,
		text.FgGreen.Sprint(c.passed),
		colorFailed(c.failed),
		formatLatency(time.Since(c.start)),
	})

	fmt.Fprintln(c.out)
	t.Render()

	if c.failed == 0 {
		fmt.Fprintf(c.out, "\n🎉 All steps passed!\n")
	} else {
		fmt.Fprintf(c.out, "\n💔 %d step(s) failed\n", c.failed)
	}

	if c.verbose && c.slowest.Name != "" {
		fmt.Fprintf(c.out, "🐢 Slowest step: %s (%s)\n", c.slowest.Name, formatLatency(c.slowest.Latency))
	}

	return nil
}

// Failed returns the number of failed steps recorded so far.
func (c *Console) Failed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Passed returns the number of passed steps recorded so far.
func (c *Console) Passed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passed
}

func colorFailed(failed int) string {
	if failed > 0 {
		return text.FgRed.Sprint(failed)
	}
	return fmt.Sprint(failed)
}

func formatLatency(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
