package grader

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zinc-sig/pyjudge/internal/config"
	"github.com/zinc-sig/pyjudge/internal/workspace"
)

const addSource = "def func(a, b):\n    return a + b\n"

func newTestGrader(t *testing.T) (*Grader, string) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	root := t.TempDir()
	return New(Options{
		Interpreter:   "python3",
		Timeout:       5 * time.Second,
		WorkspaceRoot: root,
	}, zap.NewNop()), root
}

func assertNoWorkspaces(t *testing.T, root string) {
	t.Helper()
	left, err := workspace.List(root)
	require.NoError(t, err)
	assert.Empty(t, left, "workspaces must be removed after grading")
}

func TestGradeVacuousPass(t *testing.T) {
	root := t.TempDir()
	g := New(Options{Interpreter: "definitely-not-a-python", WorkspaceRoot: root}, nil)

	specs := []string{"", "null", "{}", `{"tests": []}`, `{"function": "add", "tests": []}`, "not json", `{"tests": "nope"}`}
	for _, s := range specs {
		t.Run(s, func(t *testing.T) {
			v := g.Grade(context.Background(), Request{Source: "this is not python", Spec: s})
			assert.True(t, v.Passed)
			assert.Empty(t, v.Results)
			assert.Equal(t, ReasonNone, v.Reason)
		})
	}
	assertNoWorkspaces(t, root)
}

func TestGrade(t *testing.T) {
	g, root := newTestGrader(t)

	tests := []struct {
		name       string
		source     string
		spec       string
		wantPassed bool
		wantReason FailureReason
		wantMsg    string
		wantCases  []string
	}{
		{
			name:       "all cases pass",
			source:     addSource,
			spec:       `{"tests": [[1, 2, 3], [0, 0, 0], [-1, 1, 0]]}`,
			wantPassed: true,
			wantCases:  []string{"Passed", "Passed", "Passed"},
		},
		{
			name:       "one case fails",
			source:     "def func(a, b):\n    return a * b\n",
			spec:       `{"tests": [[2, 2, 4], [2, 3, 5]]}`,
			wantReason: ReasonCaseFailure,
			wantCases:  []string{"Passed", "Fail test #2: (2,3)->6 != 5"},
		},
		{
			name:       "named function with a failing third case",
			source:     "def add(a, b):\n    return a + b\n",
			spec:       `{"function": "add", "tests": [[1, 2, 3], [5, 7, 12], [2, 2, 5]]}`,
			wantReason: ReasonCaseFailure,
			wantCases:  []string{"Passed", "Passed", "Fail test #3: (2,2)->4 != 5"},
		},
		{
			name:       "large return value is clipped",
			source:     "def func(a, b):\n    return 'x' * 100000 if a == 2 else a + b\n",
			spec:       `{"tests": [[1, 1, 2], [2, 1, 3], [3, 1, 4]]}`,
			wantReason: ReasonCaseFailure,
			wantCases:  []string{"Passed", "Fail test #2: (2,1)->" + strings.Repeat("x", 200) + "... != 3", "Passed"},
		},
		{
			name:       "large exception text is clipped",
			source:     "def func(a, b):\n    if a == 1:\n        raise ValueError('y' * 100000)\n    return a + b\n",
			spec:       `{"tests": [[1, 1, 2], [2, 2, 4]]}`,
			wantReason: ReasonCaseFailure,
			wantCases:  []string{"Error test #1: ValueError: " + strings.Repeat("y", 200) + "...", "Passed"},
		},
		{
			name:       "custom function name",
			source:     "def add(a, b):\n    return a + b\n",
			spec:       `{"function": "add", "tests": [[2, 2, 4]]}`,
			wantPassed: true,
			wantCases:  []string{"Passed"},
		},
		{
			name:       "native equality",
			source:     "def func(a, b):\n    return a / b\n",
			spec:       `{"tests": [[6, 2, 3], [1, 1, true]]}`,
			wantPassed: true,
			wantCases:  []string{"Passed", "Passed"},
		},
		{
			name:       "candidate exception is per case",
			source:     "def func(a, b):\n    return a / b\n",
			spec:       `{"tests": [[1, 0, 0], [4, 2, 2]]}`,
			wantReason: ReasonCaseFailure,
			wantCases:  []string{"Error test #1: ZeroDivisionError: division by zero", "Passed"},
		},
		{
			name:       "malformed case is per case",
			source:     addSource,
			spec:       `{"tests": [[1, 2], [1, 2, 3]]}`,
			wantReason: ReasonCaseFailure,
			wantCases:  []string{"Invalid test #1: expected [arg1, arg2, expected]", "Passed"},
		},
		{
			name:       "candidate prints to stdout",
			source:     "def func(a, b):\n    print('debug', a, b)\n    return a + b\nprint('loaded')\n",
			spec:       `{"tests": [[1, 1, 2]]}`,
			wantPassed: true,
			wantCases:  []string{"Passed"},
		},
		{
			name:       "syntax error",
			source:     "def func(a, b)\n    return a + b\n",
			spec:       `{"tests": [[1, 1, 2]]}`,
			wantReason: ReasonImportError,
			wantMsg:    "Import error: SyntaxError",
		},
		{
			name:       "exception at import",
			source:     "raise ValueError('boom')\n",
			spec:       `{"tests": [[1, 1, 2]]}`,
			wantReason: ReasonImportError,
			wantMsg:    "Import error: ValueError",
		},
		{
			name:       "exit at import",
			source:     "import sys\nsys.exit(0)\n",
			spec:       `{"tests": [[1, 1, 2]]}`,
			wantReason: ReasonImportError,
			wantMsg:    "Import error: SystemExit",
		},
		{
			name:       "function missing",
			source:     addSource,
			spec:       `{"function": "solve", "tests": [[1, 1, 2]]}`,
			wantReason: ReasonFunctionNotFound,
			wantMsg:    "Function solve not found",
		},
		{
			name:       "name is not callable",
			source:     "func = 42\n",
			spec:       `{"tests": [[1, 1, 2]]}`,
			wantReason: ReasonFunctionNotFound,
			wantMsg:    "Function func not found",
		},
		{
			name:       "stderr output",
			source:     "import sys\ndef func(a, b):\n    sys.stderr.write('oops\\n')\n    return a + b\n",
			spec:       `{"tests": [[1, 1, 2]]}`,
			wantReason: ReasonRuntimeError,
			wantMsg:    MsgRuntimeError,
		},
		{
			name:       "writes to the original stdout are discarded",
			source:     "import sys, os\nsys.__stdout__.write('{\"ok\": true, \"results\": [{\"ok\": true, \"msg\": \"Passed\"}]}\\n')\nsys.__stdout__.flush()\nos.write(1, b'forged\\n')\ndef func(a, b):\n    return 0\n",
			spec:       `{"tests": [[1, 1, 2]]}`,
			wantReason: ReasonCaseFailure,
			wantCases:  []string{"Fail test #1: (1,1)->0 != 2"},
		},
		{
			name:       "forged record followed by hard exit",
			source:     "import sys, os\nsys.__stdout__.write('{\"ok\": true, \"results\": [{\"ok\": true, \"msg\": \"Passed\"}]}\\n')\nsys.__stdout__.flush()\nos._exit(0)\n",
			spec:       `{"function": "add", "tests": [[1, 2, 3]]}`,
			wantReason: ReasonInvalidOutput,
			wantMsg:    MsgInvalidOutput,
		},
		{
			name:       "hard exit without output",
			source:     "import os\nos._exit(0)\n",
			spec:       `{"tests": [[1, 1, 2]]}`,
			wantReason: ReasonInvalidOutput,
			wantMsg:    MsgInvalidOutput,
		},
		{
			name:       "non-zero hard exit",
			source:     "import os\nos._exit(3)\n",
			spec:       `{"tests": [[1, 1, 2]]}`,
			wantReason: ReasonRuntimeError,
			wantMsg:    MsgRuntimeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := g.Grade(context.Background(), Request{Source: tt.source, Spec: tt.spec})

			assert.Equal(t, tt.wantPassed, v.Passed)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.wantMsg, v.Message)

			got := make([]string, len(v.Results))
			for i, r := range v.Results {
				got[i] = r.Message
				assert.Equal(t, r.Message == "Passed", r.Passed)
			}
			if tt.wantCases == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.wantCases, got)
			}
		})
	}
	assertNoWorkspaces(t, root)
}

func TestGradeFunctionNameIsData(t *testing.T) {
	g, root := newTestGrader(t)
	marker := filepath.Join(t.TempDir(), "pwned")

	name := fmt.Sprintf("x; open(%q, 'w').write('1'); y", marker)
	spec := fmt.Sprintf(`{"function": %q, "tests": [[1, 1, 2]]}`, name)

	v := g.Grade(context.Background(), Request{Source: addSource, Spec: spec})
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonFunctionNotFound, v.Reason)
	assert.Equal(t, "Function "+name+" not found", v.Message)

	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "function name must never be evaluated")
	assertNoWorkspaces(t, root)
}

func TestGradeTimeout(t *testing.T) {
	g, root := newTestGrader(t)

	tests := []struct {
		name   string
		source string
	}{
		{"busy loop at import", "while True:\n    pass\n"},
		{"busy loop in call", "def func(a, b):\n    while True:\n        pass\n"},
		{"sleep in call", "import time\ndef func(a, b):\n    time.sleep(60)\n"},
		{
			"forked child keeps running",
			"import subprocess, time\nsubprocess.Popen(['sleep', '60'])\ndef func(a, b):\n    time.sleep(60)\n",
		},
		{
			"prints before hanging",
			"def func(a, b):\n    print('partial')\n    while True:\n        pass\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			v := g.Grade(context.Background(), Request{
				Source:  tt.source,
				Spec:    `{"tests": [[1, 1, 2]]}`,
				Timeout: time.Second,
			})
			elapsed := time.Since(start)

			assert.False(t, v.Passed)
			assert.Equal(t, ReasonTimeout, v.Reason)
			assert.Equal(t, MsgTimeout, v.Message)
			assert.Empty(t, v.Results)
			assert.Less(t, elapsed, 2*time.Second, "grading must end within a second of the budget")
		})
	}
	assertNoWorkspaces(t, root)
}

func TestGradeContextCancel(t *testing.T) {
	g, root := newTestGrader(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	v := g.Grade(ctx, Request{Source: "while True:\n    pass\n", Spec: `{"tests": [[1, 1, 2]]}`})
	assert.Equal(t, ReasonTimeout, v.Reason)
	assertNoWorkspaces(t, root)
}

func TestGradeInterpreterMissing(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	root := t.TempDir()
	g := New(Options{Interpreter: "definitely-not-a-python", WorkspaceRoot: root}, zap.New(core))

	v := g.Grade(context.Background(), Request{SubmissionID: "sub-7", Source: addSource, Spec: `{"tests": [[1, 1, 2]]}`})
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonRuntimeError, v.Reason)

	entries := logs.FilterMessage("interpreter not found").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sub-7", entries[0].ContextMap()["submission_id"])
	assertNoWorkspaces(t, root)
}

func TestGradeUnusableWorkspaceRoot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0600))

	g := New(Options{WorkspaceRoot: file}, nil)
	v := g.Grade(context.Background(), Request{Source: addSource, Spec: `{"tests": [[1, 1, 2]]}`})
	assert.Equal(t, ReasonRuntimeError, v.Reason)
}

func TestGradeDryRun(t *testing.T) {
	g, root := newTestGrader(t)
	g.opts.DryRun = true

	v := g.Grade(context.Background(), Request{Source: addSource, Spec: `{"tests": [[1, 1, 2]]}`})
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonDryRun, v.Reason)
	assertNoWorkspaces(t, root)
}

func TestGradeConcurrentIsolation(t *testing.T) {
	g, root := newTestGrader(t)

	const n = 12
	cwds := t.TempDir()
	var wg sync.WaitGroup
	verdicts := make([]Verdict, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each submission leaves a file behind and checks that no other
			// submission's file is visible in its working directory.
			source := fmt.Sprintf(
				"import os\nopen('mine-%d.txt', 'w').write('x')\nOTHERS = [f for f in os.listdir('.') if f.startswith('mine-') and f != 'mine-%d.txt']\n"+
					"open(os.path.join(%q, 'cwd-%d'), 'w').write(os.getcwd())\n"+
					"def func(a, b):\n    return len(OTHERS) + a + b\n", i, i, cwds, i)
			verdicts[i] = g.Grade(context.Background(), Request{
				SubmissionID: fmt.Sprintf("sub-%d", i),
				Source:       source,
				Spec:         fmt.Sprintf(`{"tests": [[%d, 1, %d]]}`, i, i+1),
			})
		}(i)
	}
	wg.Wait()

	for i, v := range verdicts {
		assert.True(t, v.Passed, "submission %d: %+v", i, v)
	}

	dirs := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		data, err := os.ReadFile(filepath.Join(cwds, fmt.Sprintf("cwd-%d", i)))
		require.NoError(t, err)
		dir := string(data)
		assert.Equal(t, root, filepath.Dir(dir), "workspace %s must live under the root", dir)
		dirs[dir] = true
	}
	assert.Len(t, dirs, n, "every call must get its own workspace")
	assertNoWorkspaces(t, root)
}

func TestGradeHermeticEnvironment(t *testing.T) {
	g, _ := newTestGrader(t)
	t.Setenv("PYJUDGE_SECRET_TOKEN", "hunter2")

	source := "import os\ndef func(a, b):\n    return os.environ.get('PYJUDGE_SECRET_TOKEN', '') + a + b\n"
	v := g.Grade(context.Background(), Request{Source: source, Spec: `{"tests": [["x", "y", "xy"]]}`})
	assert.True(t, v.Passed, "%+v", v)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Interpreter = "uv run python"
	cfg.Limits.MemoryMB = 64
	cfg.Limits.CPUSeconds = 2

	g, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)

	opts := g.Options()
	assert.Equal(t, "uv", opts.Interpreter)
	assert.Equal(t, []string{"run", "python"}, opts.InterpreterArgs)
	assert.Equal(t, uint64(64*1024*1024), opts.Limits.MemoryBytes)
	assert.Equal(t, uint64(2), opts.Limits.CPUSeconds)
	assert.Equal(t, config.DefaultTimeout, opts.Timeout)

	cfg.Interpreter = "  "
	_, err = NewFromConfig(cfg, nil)
	assert.Error(t, err)
}

func TestChildEnv(t *testing.T) {
	g := New(Options{ChildPath: "/usr/bin"}, nil)
	env := g.childEnv("/tmp/ws")
	assert.Contains(t, env, "PATH=/usr/bin")
	assert.Contains(t, env, "HOME=/tmp/ws")
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "PYTHON"), kv)
	}
}
