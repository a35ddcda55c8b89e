// Package config loads grader settings from an optional YAML file and
// PYJUDGE_* environment variables. CLI flags are applied on top by cmd/.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

const (
	DefaultInterpreter    = "python3"
	DefaultTimeout        = 3 * time.Second
	DefaultMaxOutputBytes = 64 * 1024
	DefaultChildPath      = "/usr/local/bin:/usr/bin:/bin"
	DefaultParallel       = 4

	envPrefix = "PYJUDGE_"
)

// Limits are the optional rlimits applied to each child.
type Limits struct {
	MemoryMB   uint64 `yaml:"memory_mb"`
	CPUSeconds uint64 `yaml:"cpu_seconds"`
	OpenFiles  uint64 `yaml:"open_files"`
	Processes  uint64 `yaml:"processes"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type Config struct {
	// Interpreter is a command line, e.g. "python3" or "uv run python".
	Interpreter    string        `yaml:"interpreter"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxOutputBytes int64         `yaml:"max_output_bytes"`
	WorkspaceRoot  string        `yaml:"workspace_root"`
	ChildPath      string        `yaml:"child_path"`
	Parallel       int           `yaml:"parallel"`
	Limits         Limits        `yaml:"limits"`
	Log            Log           `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Interpreter:    DefaultInterpreter,
		Timeout:        DefaultTimeout,
		MaxOutputBytes: DefaultMaxOutputBytes,
		ChildPath:      DefaultChildPath,
		Parallel:       DefaultParallel,
		Log:            Log{Level: "warn", Format: "console"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if _, _, err := c.InterpreterCommand(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxOutputBytes <= 0 {
		return fmt.Errorf("max_output_bytes must be positive")
	}
	if c.Parallel <= 0 {
		return fmt.Errorf("parallel must be positive")
	}
	return nil
}

// InterpreterCommand splits Interpreter into program and leading arguments.
func (c Config) InterpreterCommand() (string, []string, error) {
	parts, err := shlex.Split(c.Interpreter)
	if err != nil {
		return "", nil, fmt.Errorf("invalid interpreter %q: %w", c.Interpreter, err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("interpreter is required")
	}
	return parts[0], parts[1:], nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookup("INTERPRETER"); ok {
		cfg.Interpreter = v
	}
	if v, ok := lookup("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", envPrefix, err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookup("WORKSPACE_ROOT"); ok {
		cfg.WorkspaceRoot = v
	}
	if v, ok := lookup("CHILD_PATH"); ok {
		cfg.ChildPath = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}

	ints := []struct {
		key string
		set func(int64)
	}{
		{"MAX_OUTPUT_BYTES", func(n int64) { cfg.MaxOutputBytes = n }},
		{"PARALLEL", func(n int64) { cfg.Parallel = int(n) }},
		{"MEMORY_MB", func(n int64) { cfg.Limits.MemoryMB = uint64(n) }},
		{"CPU_SECONDS", func(n int64) { cfg.Limits.CPUSeconds = uint64(n) }},
		{"OPEN_FILES", func(n int64) { cfg.Limits.OpenFiles = uint64(n) }},
		{"PROCESSES", func(n int64) { cfg.Limits.Processes = uint64(n) }},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s%s: %q", envPrefix, i.key, v)
		}
		i.set(n)
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
