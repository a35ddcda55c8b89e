package runner

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Output is where banners are written. Tests swap it out.
var Output io.Writer = os.Stderr

func colorEnabled() bool {
	f, ok := Output.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func statusColor(status Status) *color.Color {
	var c *color.Color
	switch status {
	case StatusSuccess:
		c = color.New(color.FgGreen, color.Bold)
	case StatusTimeout:
		c = color.New(color.FgYellow, color.Bold)
	default:
		c = color.New(color.FgRed, color.Bold)
	}
	if !colorEnabled() {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// PrintPreExecution prints command details before execution
func PrintPreExecution(fullCommand string, config *Config) {
	header := "Harness Execution Details"
	if config.DryRun {
		header = "Harness Execution Details (DRY RUN)"
	}

	fmt.Fprintln(Output, "========================================")
	fmt.Fprintln(Output, header)
	fmt.Fprintln(Output, "========================================")
	fmt.Fprintf(Output, "Command:   %s\n", fullCommand)
	fmt.Fprintf(Output, "Workspace: %s\n", config.Dir)
	if config.Timeout > 0 {
		fmt.Fprintf(Output, "Timeout:   %s\n", config.Timeout)
	}
	if !config.Limits.IsZero() {
		fmt.Fprintf(Output, "Limits:    mem=%d cpu=%ds nofile=%d nproc=%d\n",
			config.Limits.MemoryBytes, config.Limits.CPUSeconds, config.Limits.OpenFiles, config.Limits.Processes)
	}
	fmt.Fprintln(Output, "----------------------------------------")

	if config.DryRun {
		fmt.Fprintln(Output, "[DRY RUN] Harness would be executed here")
		fmt.Fprintln(Output, "----------------------------------------")
	}
}

// PrintPostExecution prints execution results after the child exits.
// Captured streams are summarized by size only.
func PrintPostExecution(result *Result, dryRun bool) {
	fmt.Fprintln(Output, "----------------------------------------")
	if dryRun {
		fmt.Fprintln(Output, "Execution Results (DRY RUN - Simulated):")
	} else {
		fmt.Fprintln(Output, "Execution Results:")
	}
	fmt.Fprintln(Output, "----------------------------------------")
	fmt.Fprintf(Output, "Status:         %s\n", statusColor(result.Status).Sprint(result.Status))
	fmt.Fprintf(Output, "Exit Code:      %d\n", result.ExitCode)
	fmt.Fprintf(Output, "Execution Time: %d ms\n", result.ExecutionTime)
	fmt.Fprintf(Output, "Stdout:         %d bytes%s\n", len(result.Stdout), truncatedMark(result.StdoutTruncated))
	fmt.Fprintf(Output, "Stderr:         %d bytes%s\n", len(result.Stderr), truncatedMark(result.StderrTruncated))
	fmt.Fprintln(Output, "========================================")
}

func truncatedMark(truncated bool) string {
	if truncated {
		return " (truncated)"
	}
	return ""
}
