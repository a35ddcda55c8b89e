package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"
)

// Status is the supervisor-level outcome of one child process.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

const (
	defaultMaxOutputBytes int64 = 64 * 1024
	// killGrace bounds how long Wait may block on pipes after the child is
	// gone, e.g. when a detached grandchild still holds stdout open.
	killGrace = 500 * time.Millisecond
)

// ErrInterpreterNotFound is returned when the command cannot be resolved.
var ErrInterpreterNotFound = errors.New("interpreter not found")

type Config struct {
	Command string
	Args    []string
	// Dir is the child's working directory.
	Dir string
	// Env is the complete child environment. Nothing is inherited from the
	// parent; a nil Env runs the child with an empty environment.
	Env            []string
	Timeout        time.Duration
	MaxOutputBytes int64
	Limits         Limits
	Verbose        bool
	DryRun         bool
}

type Result struct {
	Command         string
	Status          Status
	ExitCode        int
	ExecutionTime   int64 // milliseconds
	Stdout          []byte
	Stderr          []byte
	StdoutTruncated bool
	StderrTruncated bool
}

// FullCommand renders the command line for logs and banners.
func (c *Config) FullCommand() string {
	if len(c.Args) == 0 {
		return c.Command
	}
	return c.Command + " " + strings.Join(c.Args, " ")
}

// Execute runs the child to completion or until the timeout (or ctx) ends
// it. On timeout the whole process group is killed and captured output is
// dropped. An error is returned only when the child could not be run.
func Execute(ctx context.Context, config *Config) (*Result, error) {
	fullCommand := config.FullCommand()

	if config.Verbose {
		PrintPreExecution(fullCommand, config)
	}
	if config.DryRun {
		result := &Result{Command: fullCommand, Status: StatusSuccess}
		if config.Verbose {
			PrintPostExecution(result, true)
		}
		return result, nil
	}

	path, err := exec.LookPath(config.Command)
	if err != nil {
		return nil, fmt.Errorf("failed to start command %s: %w: %v", config.Command, ErrInterpreterNotFound, err)
	}

	maxBytes := config.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxOutputBytes
	}
	stdout := newLimitedBuffer(maxBytes)
	stderr := newLimitedBuffer(maxBytes)

	cmd := exec.Command(path, config.Args...)
	cmd.Dir = config.Dir
	cmd.Env = config.Env
	if cmd.Env == nil {
		cmd.Env = []string{}
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = killGrace
	setProcessGroup(cmd)

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}
	pid := cmd.Process.Pid
	if err := applyLimits(pid, config.Limits); err != nil {
		killProcessGroup(cmd)
		_ = cmd.Wait()
		return nil, fmt.Errorf("failed to apply resource limits: %w", err)
	}

	var timedOut atomic.Bool
	done := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		var timer <-chan time.Time
		if config.Timeout > 0 {
			t := time.NewTimer(config.Timeout)
			defer t.Stop()
			timer = t.C
		}
		select {
		case <-timer:
			timedOut.Store(true)
			killProcessGroup(cmd)
		case <-ctx.Done():
			timedOut.Store(true)
			killProcessGroup(cmd)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	<-watcherDone
	// Reap anything the child left behind in its group, even on a clean exit.
	killProcessGroup(cmd)
	executionTime := time.Since(startTime).Milliseconds()

	result := &Result{
		Command:       fullCommand,
		ExecutionTime: executionTime,
	}

	switch {
	case timedOut.Load():
		result.Status = StatusTimeout
		result.ExitCode = -1
		// partial output of a killed child is never trusted
	case waitErr == nil || errors.Is(waitErr, exec.ErrWaitDelay):
		result.ExitCode = cmd.ProcessState.ExitCode()
		result.Status = statusForExit(result.ExitCode)
		result.Stdout, result.StdoutTruncated = stdout.Bytes(), stdout.Truncated()
		result.Stderr, result.StderrTruncated = stderr.Bytes(), stderr.Truncated()
	default:
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("failed to wait for command: %w", waitErr)
		}
		result.ExitCode = exitErr.ExitCode()
		result.Status = StatusFailed
		result.Stdout, result.StdoutTruncated = stdout.Bytes(), stdout.Truncated()
		result.Stderr, result.StderrTruncated = stderr.Bytes(), stderr.Truncated()
	}

	if config.Verbose {
		PrintPostExecution(result, false)
	}
	return result, nil
}

func statusForExit(code int) Status {
	if code == 0 {
		return StatusSuccess
	}
	return StatusFailed
}
