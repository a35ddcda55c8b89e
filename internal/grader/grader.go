// Package grader runs untrusted Python submissions against a test
// specification and reduces every outcome to a Verdict.
//
// Each Grade call moves through Created → Staged → Running →
// {Completed | TimedOut | Crashed} → Cleaned. The workspace is removed on
// every path, including panics inside the grader itself.
package grader

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zinc-sig/pyjudge/internal/config"
	"github.com/zinc-sig/pyjudge/internal/harness"
	"github.com/zinc-sig/pyjudge/internal/logger"
	"github.com/zinc-sig/pyjudge/internal/runner"
	"github.com/zinc-sig/pyjudge/internal/spec"
	"github.com/zinc-sig/pyjudge/internal/workspace"
)

// AutoCompleteMarker flags code the client already verified. Honoring it is
// the caller's decision; Grade never looks at it.
const AutoCompleteMarker = "# AUTO_COMPLETED:"

// stderrLogLimit caps how much child stderr reaches the debug log.
const stderrLogLimit = 2048

// pythonFlags run the interpreter in isolated mode without writing bytecode.
var pythonFlags = []string{"-I", "-B"}

// Options configure a Grader. They are fixed at construction.
type Options struct {
	Interpreter     string
	InterpreterArgs []string
	Timeout         time.Duration
	MaxOutputBytes  int64
	WorkspaceRoot   string
	ChildPath       string
	Limits          runner.Limits
	Verbose         bool
	DryRun          bool
}

// Request is one grading call. A zero Timeout uses the grader default.
type Request struct {
	SubmissionID string
	Source       string
	Spec         string
	Timeout      time.Duration
}

// Grader is safe for concurrent use; calls share no mutable state.
type Grader struct {
	opts Options
	log  *zap.Logger
}

// New creates a Grader. A nil logger discards logs.
func New(opts Options, log *zap.Logger) *Grader {
	if opts.Interpreter == "" {
		opts.Interpreter = config.DefaultInterpreter
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultTimeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = config.DefaultMaxOutputBytes
	}
	if opts.ChildPath == "" {
		opts.ChildPath = config.DefaultChildPath
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Grader{opts: opts, log: log}
}

// NewFromConfig builds Options from a loaded configuration.
func NewFromConfig(cfg config.Config, log *zap.Logger) (*Grader, error) {
	prog, args, err := cfg.InterpreterCommand()
	if err != nil {
		return nil, err
	}
	return New(Options{
		Interpreter:     prog,
		InterpreterArgs: args,
		Timeout:         cfg.Timeout,
		MaxOutputBytes:  cfg.MaxOutputBytes,
		WorkspaceRoot:   cfg.WorkspaceRoot,
		ChildPath:       cfg.ChildPath,
		Limits: runner.Limits{
			MemoryBytes: cfg.Limits.MemoryMB * 1024 * 1024,
			CPUSeconds:  cfg.Limits.CPUSeconds,
			OpenFiles:   cfg.Limits.OpenFiles,
			Processes:   cfg.Limits.Processes,
		},
	}, log), nil
}

// Options returns the effective options.
func (g *Grader) Options() Options {
	return g.opts
}

// IsAutoCompleted reports whether source carries the auto-complete marker.
func IsAutoCompleted(source string) bool {
	return strings.Contains(source, AutoCompleteMarker)
}

// Grade executes req and returns its verdict. It never returns an error
// and never panics; every failure is folded into the Verdict.
func (g *Grader) Grade(ctx context.Context, req Request) (v Verdict) {
	if req.SubmissionID != "" {
		ctx = logger.WithSubmission(ctx, req.SubmissionID)
	}
	log := logger.For(ctx, g.log)

	defer func() {
		if r := recover(); r != nil {
			log.Error("grader panic", zap.Any("panic", r))
			v = runtimeErrorVerdict()
		}
	}()

	s := spec.Parse(req.Spec)
	if s.IsEmpty() {
		log.Debug("no test cases, vacuous pass", zap.String("function", s.Function))
		return vacuousPass()
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = g.opts.Timeout
	}

	ws, err := workspace.Create(g.opts.WorkspaceRoot)
	if err != nil {
		log.Warn("create workspace failed", zap.Error(err))
		return runtimeErrorVerdict()
	}
	ctx = logger.WithWorkspace(ctx, ws.ID)
	log = logger.For(ctx, g.log)
	log.Debug("workspace created", zap.String("state", "created"), zap.String("dir", ws.Dir))
	defer func() {
		if err := ws.Cleanup(); err != nil {
			log.Warn("workspace cleanup failed", zap.String("dir", ws.Dir), zap.Error(err))
			return
		}
		log.Debug("workspace removed", zap.String("state", "cleaned"))
	}()

	unit, err := harness.Stage(ws, req.Source, s)
	if err != nil {
		log.Warn("stage harness failed", zap.Error(err))
		return runtimeErrorVerdict()
	}
	log.Debug("harness staged", zap.String("state", "staged"), zap.Int("cases", len(s.Cases)))

	args := make([]string, 0, len(g.opts.InterpreterArgs)+len(pythonFlags)+3)
	args = append(args, g.opts.InterpreterArgs...)
	args = append(args, pythonFlags...)
	args = append(args, unit.Args()...)

	log.Debug("running harness", zap.String("state", "running"), zap.Duration("timeout", timeout))
	res, err := runner.Execute(ctx, &runner.Config{
		Command:        g.opts.Interpreter,
		Args:           args,
		Dir:            ws.Dir,
		Env:            g.childEnv(ws.Dir),
		Timeout:        timeout,
		MaxOutputBytes: g.opts.MaxOutputBytes,
		Limits:         g.opts.Limits,
		Verbose:        g.opts.Verbose,
		DryRun:         g.opts.DryRun,
	})
	if err != nil {
		if errors.Is(err, runner.ErrInterpreterNotFound) {
			log.Error("interpreter not found", zap.String("interpreter", g.opts.Interpreter), zap.Error(err))
		} else {
			log.Warn("supervisor failure", zap.Error(err))
		}
		return runtimeErrorVerdict()
	}
	if g.opts.DryRun {
		return supervisorFailure(ReasonDryRun, MsgDryRun)
	}

	v = g.normalize(log, res, len(s.Cases))
	log.Info("graded",
		zap.Bool("passed", v.Passed),
		zap.String("reason", string(v.Reason)),
		zap.Int64("execution_ms", res.ExecutionTime),
	)
	return v
}

// normalize maps a finished child onto a verdict.
func (g *Grader) normalize(log *zap.Logger, res *runner.Result, cases int) Verdict {
	switch {
	case res.Status == runner.StatusTimeout:
		log.Debug("harness timed out", zap.String("state", "timed_out"))
		return timeoutVerdict()
	case len(res.Stderr) > 0:
		log.Debug("harness wrote to stderr", zap.String("state", "crashed"),
			zap.Int("exit_code", res.ExitCode), zap.ByteString("stderr", clip(res.Stderr, stderrLogLimit)))
		return runtimeErrorVerdict()
	case res.Status != runner.StatusSuccess:
		log.Debug("harness exited abnormally", zap.String("state", "crashed"), zap.Int("exit_code", res.ExitCode))
		return runtimeErrorVerdict()
	case res.StdoutTruncated:
		log.Debug("harness output truncated", zap.String("state", "completed"))
		return invalidOutputVerdict()
	}

	rec, err := harness.DecodeRecord(res.Stdout)
	if err != nil {
		log.Debug("harness output rejected", zap.String("state", "completed"), zap.Error(err))
		return invalidOutputVerdict()
	}
	log.Debug("harness completed", zap.String("state", "completed"))
	return fromRecord(rec, cases)
}

func (g *Grader) childEnv(dir string) []string {
	return []string{
		"PATH=" + g.opts.ChildPath,
		"HOME=" + dir,
		"TMPDIR=" + dir,
		"LANG=C.UTF-8",
		"LC_ALL=C.UTF-8",
	}
}

func clip(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
