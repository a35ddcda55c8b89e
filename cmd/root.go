package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zinc-sig/pyjudge/internal/config"
	"github.com/zinc-sig/pyjudge/internal/logger"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "pyjudge",
		Short: "Grade untrusted Python submissions against a test specification",
		Long: `pyjudge runs a candidate's Python source in a throwaway workspace under a
wall-clock budget, calls the named function on every test case and prints one
JSON report per submission.

Verdict failures are data: the exit status is non-zero only when no report
could be produced.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML configuration file (default $PYJUDGE_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: console or json")

	root.AddCommand(newGradeCommand(opts))
	root.AddCommand(newBatchCommand(opts))
	root.AddCommand(newSpecCommand())
	return root
}

// load resolves the configuration file, environment and logging flags.
// The returned func flushes and closes the log output.
func (o *globalOptions) load() (config.Config, *zap.Logger, func(), error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("PYJUDGE_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}

	log, cleanup, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, cleanup, nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
