package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zinc-sig/pyjudge/cmd/config"
	"github.com/zinc-sig/pyjudge/cmd/helpers"
	"github.com/zinc-sig/pyjudge/internal/output"
)

type gradeOptions struct {
	submission config.SubmissionFlags
	common     config.CommonFlags
	context    config.ContextConfig
	webhook    config.WebhookConfig
	upload     config.UploadConfig
}

func newGradeCommand(global *globalOptions) *cobra.Command {
	opts := &gradeOptions{}

	cmd := &cobra.Command{
		Use:   "grade --source FILE (--spec JSON | --spec-file FILE)",
		Short: "Grade one submission",
		Long: `Grade one Python submission and print its report as a single JSON line.

The specification is a JSON object {"function": NAME, "tests": [[a, b, expected], ...]}.
An empty or unreadable specification grades as a vacuous pass.`,
		Example: `  pyjudge grade --source solution.py --spec '{"function": "add", "tests": [[1, 2, 3]]}'
  cat solution.py | pyjudge grade --source - --spec-file task.json --timeout 2s --score 10
  pyjudge grade -s solution.py --spec-file task.json --webhook-url https://lms.example.com/hook`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrade(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.submission.Source, "source", "s", "", "Candidate source file, or - for stdin")
	cmd.Flags().StringVar(&opts.submission.Spec, "spec", "", "Test specification as JSON string")
	cmd.Flags().StringVar(&opts.submission.SpecFile, "spec-file", "", "Path to JSON test specification")
	cmd.Flags().StringVar(&opts.submission.ID, "submission-id", "", "Submission identifier (default: random UUID)")

	helpers.SetupCommonFlags(cmd, &opts.common)
	helpers.SetupContextFlags(cmd, &opts.context)
	helpers.SetupWebhookFlags(cmd, &opts.webhook)
	helpers.SetupUploadFlags(cmd, &opts.upload)
	return cmd
}

func runGrade(cmd *cobra.Command, global *globalOptions, opts *gradeOptions) error {
	source, err := helpers.ReadSource(opts.submission.Source, cmd.InOrStdin())
	if err != nil {
		return err
	}
	specText, err := helpers.ReadSpec(opts.submission.Spec, opts.submission.SpecFile)
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

	report := pipeline.Process(cmd.Context(), helpers.Submission{
		ID:      opts.submission.ID,
		Source:  source,
		Spec:    specText,
		Timeout: opts.common.Timeout,
	})
	return output.Write(cmd.OutOrStdout(), report)
}
