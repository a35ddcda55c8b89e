package helpers

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zinc-sig/pyjudge/cmd/config"
)

// ParseTimeout parses and validates a timeout duration string
func ParseTimeout(timeoutStr string) (time.Duration, error) {
	if timeoutStr == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout duration: %w", err)
	}

	if timeout <= 0 {
		return 0, fmt.Errorf("timeout must be positive")
	}

	return timeout, nil
}

// ParseScore parses the maximum score. Empty means no score.
func ParseScore(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid score %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("score must not be negative")
	}
	return &d, nil
}

// ResolveCommonFlags fills the parsed fields of flags.
func ResolveCommonFlags(flags *config.CommonFlags) error {
	var err error
	if flags.Timeout, err = ParseTimeout(flags.TimeoutStr); err != nil {
		return err
	}
	if flags.Score, err = ParseScore(flags.ScoreStr); err != nil {
		return err
	}
	return nil
}

// ReadSource reads candidate code from path, or from stdin when path is "-".
func ReadSource(path string, stdin io.Reader) (string, error) {
	if path == "" {
		return "", fmt.Errorf("required flag 'source' not set")
	}
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read source from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read source: %w", err)
	}
	return string(data), nil
}

// ReadSpec returns the inline specification or the content of file.
// Exactly one must be given.
func ReadSpec(inline, file string) (string, error) {
	switch {
	case inline != "" && file != "":
		return "", fmt.Errorf("--spec and --spec-file are mutually exclusive")
	case inline != "":
		return inline, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read spec file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("one of --spec or --spec-file is required")
	}
}
