package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

// Helper functions
func testEnv() []string {
	return []string{"PATH=" + os.Getenv("PATH")}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name          string
		config        func(dir string) *Config
		wantStatus    Status
		wantExitCode  int
		wantStdout    string
		wantStderr    string
		wantError     bool
		errorContains string
	}{
		{
			name: "successful echo command",
			config: func(dir string) *Config {
				return &Config{Command: "echo", Args: []string{"hello world"}, Dir: dir, Env: testEnv()}
			},
			wantStatus:   StatusSuccess,
			wantExitCode: 0,
			wantStdout:   "hello world\n",
		},
		{
			name: "command with non-zero exit code",
			config: func(dir string) *Config {
				return &Config{Command: "sh", Args: []string{"-c", "exit 42"}, Dir: dir, Env: testEnv()}
			},
			wantStatus:   StatusFailed,
			wantExitCode: 42,
		},
		{
			name: "stdout and stderr are captured separately",
			config: func(dir string) *Config {
				return &Config{Command: "sh", Args: []string{"-c", "echo out && echo err >&2"}, Dir: dir, Env: testEnv()}
			},
			wantStatus:   StatusSuccess,
			wantExitCode: 0,
			wantStdout:   "out\n",
			wantStderr:   "err\n",
		},
		{
			name: "runs inside the configured directory",
			config: func(dir string) *Config {
				return &Config{Command: "sh", Args: []string{"-c", "pwd"}, Dir: dir, Env: testEnv()}
			},
			wantStatus:   StatusSuccess,
			wantExitCode: 0,
		},
		{
			name: "non-existent command",
			config: func(dir string) *Config {
				return &Config{Command: "nonexistentcommand12345", Dir: dir}
			},
			wantError:     true,
			errorContains: "failed to start command",
		},
		{
			name: "false command returns exit code 1",
			config: func(dir string) *Config {
				return &Config{Command: "false", Dir: dir, Env: testEnv()}
			},
			wantStatus:   StatusFailed,
			wantExitCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			result, err := Execute(context.Background(), tt.config(dir))

			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("error = %v, want error containing %q", err, tt.errorContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", result.Status, tt.wantStatus)
			}
			if result.ExitCode != tt.wantExitCode {
				t.Errorf("exit code = %d, want %d", result.ExitCode, tt.wantExitCode)
			}
			if tt.wantStdout != "" && string(result.Stdout) != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", result.Stdout, tt.wantStdout)
			}
			if tt.wantStderr != "" && string(result.Stderr) != tt.wantStderr {
				t.Errorf("stderr = %q, want %q", result.Stderr, tt.wantStderr)
			}
			if result.ExecutionTime < 0 {
				t.Errorf("execution time should be non-negative, got %d ms", result.ExecutionTime)
			}
		})
	}
}

func TestExecuteMissingInterpreter(t *testing.T) {
	_, err := Execute(context.Background(), &Config{Command: "python-does-not-exist-9"})
	if !errors.Is(err, ErrInterpreterNotFound) {
		t.Errorf("error = %v, want ErrInterpreterNotFound", err)
	}
}

func TestExecuteDoesNotInheritEnvironment(t *testing.T) {
	t.Setenv("PYJUDGE_SECRET_TOKEN", "do-not-leak")

	result, err := Execute(context.Background(), &Config{
		Command: "sh",
		Args:    []string{"-c", "env"},
		Dir:     t.TempDir(),
		Env:     []string{"PATH=" + os.Getenv("PATH"), "LANG=C.UTF-8"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Contains(result.Stdout, []byte("do-not-leak")) {
		t.Error("parent environment leaked into the child")
	}
	if !bytes.Contains(result.Stdout, []byte("LANG=C.UTF-8")) {
		t.Errorf("configured variable missing from child env: %s", result.Stdout)
	}
}

func TestLargeOutputIsCapped(t *testing.T) {
	config := &Config{
		Command:        "sh",
		Args:           []string{"-c", "for i in $(seq 1 10000); do echo 'Hello World'; done"},
		Dir:            t.TempDir(),
		Env:            testEnv(),
		MaxOutputBytes: 1024,
	}

	result, err := Execute(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if len(result.Stdout) != 1024 {
		t.Errorf("stdout size = %d bytes, want 1024", len(result.Stdout))
	}
	if !result.StdoutTruncated {
		t.Error("expected stdout to be marked truncated")
	}
	if result.StderrTruncated {
		t.Error("stderr should not be marked truncated")
	}
}

func TestDryRunDoesNotExecute(t *testing.T) {
	var banner bytes.Buffer
	old := Output
	Output = &banner
	defer func() { Output = old }()

	dir := t.TempDir()
	marker := dir + "/ran"
	result, err := Execute(context.Background(), &Config{
		Command: "sh",
		Args:    []string{"-c", "touch " + marker},
		Dir:     dir,
		Env:     testEnv(),
		Verbose: true,
		DryRun:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Errorf("status = %v, want %v", result.Status, StatusSuccess)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("dry run executed the command")
	}
	if !strings.Contains(banner.String(), "DRY RUN") {
		t.Errorf("banner missing DRY RUN header: %s", banner.String())
	}
}

func TestLimitedBuffer(t *testing.T) {
	b := newLimitedBuffer(5)
	n, err := b.Write([]byte("abc"))
	if n != 3 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	n, err = b.Write([]byte("defgh"))
	if n != 5 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if got := string(b.Bytes()); got != "abcde" {
		t.Errorf("Bytes() = %q, want %q", got, "abcde")
	}
	if !b.Truncated() {
		t.Error("expected Truncated() to be true")
	}
}

func BenchmarkExecute(b *testing.B) {
	dir := b.TempDir()
	for i := 0; i < b.N; i++ {
		_, err := Execute(context.Background(), &Config{
			Command: "echo",
			Args:    []string{"benchmark"},
			Dir:     dir,
			Env:     testEnv(),
			Timeout: time.Second,
		})
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}
