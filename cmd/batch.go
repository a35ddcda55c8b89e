package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zinc-sig/pyjudge/cmd/config"
	"github.com/zinc-sig/pyjudge/cmd/helpers"
	"github.com/zinc-sig/pyjudge/internal/output"
)

type batchOptions struct {
	manifest string
	parallel int
	common   config.CommonFlags
	context  config.ContextConfig
	webhook  config.WebhookConfig
	upload   config.UploadConfig
}

func newBatchCommand(global *globalOptions) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch --manifest FILE",
		Short: "Grade many submissions concurrently",
		Long: `Grade every submission listed in a YAML or JSON manifest and print one report
per line, in manifest order.

Each entry has an id, source or source_file, spec or spec_file and an optional
timeout. A --timeout flag applies to entries without their own.`,
		Example: `  pyjudge batch --manifest lab2.yaml --parallel 8 --score 10
  pyjudge batch --manifest submissions.json --webhook-url https://lms.example.com/hook`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "Path to batch manifest (YAML or JSON)")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 0, "Maximum concurrent submissions (default from config)")

	helpers.SetupCommonFlags(cmd, &opts.common)
	helpers.SetupContextFlags(cmd, &opts.context)
	helpers.SetupWebhookFlags(cmd, &opts.webhook)
	helpers.SetupUploadFlags(cmd, &opts.upload)
	return cmd
}

func runBatch(cmd *cobra.Command, global *globalOptions, opts *batchOptions) error {
	if opts.manifest == "" {
		return fmt.Errorf("required flag 'manifest' not set")
	}
	if opts.parallel < 0 {
		return fmt.Errorf("parallel must be positive")
	}

	subs, err := helpers.LoadManifest(opts.manifest)
	if err != nil {
		return err
	}

	cfg, log, closeLog, err := global.load()
	if err != nil {
		return err
	}
	defer closeLog()

	pipeline, err := helpers.BuildPipeline(cmd.Context(), cfg, log, helpers.PipelineFlags{
		Common:  &opts.common,
		Context: &opts.context,
		Webhook: &opts.webhook,
		Upload:  &opts.upload,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	parallel := opts.parallel
	if parallel == 0 {
		parallel = cfg.Parallel
	}

	log.Info("batch started", zap.Int("submissions", len(subs)), zap.Int("parallel", parallel))

	reports := make([]*output.Report, len(subs))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(parallel)
	for i, sub := range subs {
		if sub.Timeout == 0 {
			sub.Timeout = opts.common.Timeout
		}
		g.Go(func() error {
			reports[i] = pipeline.Process(ctx, sub)
			return nil
		})
	}
	// Process never fails; Wait only joins.
	_ = g.Wait()

	passed := 0
	out := cmd.OutOrStdout()
	for _, r := range reports {
		if r.OK {
			passed++
		}
		if err := output.Write(out, r); err != nil {
			return err
		}
	}
	log.Info("batch finished", zap.Int("submissions", len(subs)), zap.Int("passed", passed))
	return nil
}
