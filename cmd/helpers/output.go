package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zinc-sig/pyjudge/cmd/config"
	appconfig "github.com/zinc-sig/pyjudge/internal/config"
	"github.com/zinc-sig/pyjudge/internal/grader"
	"github.com/zinc-sig/pyjudge/internal/metadata"
	"github.com/zinc-sig/pyjudge/internal/output"
	"github.com/zinc-sig/pyjudge/internal/upload"
	"github.com/zinc-sig/pyjudge/internal/webhook"
)

// Submission is one unit of work for a Pipeline.
type Submission struct {
	ID      string
	Source  string
	Spec    string
	Timeout time.Duration
}

// Pipeline grades a submission, then archives and delivers its report.
type Pipeline struct {
	Grader            *grader.Grader
	Webhook           *webhook.Client
	Archiver          *upload.Archiver
	Score             *decimal.Decimal
	Context           any
	HonorAutoComplete bool
	DryRun            bool
	Log               *zap.Logger
}

// PipelineFlags are the flag groups a Pipeline is built from.
type PipelineFlags struct {
	Common  *config.CommonFlags
	Context *config.ContextConfig
	Webhook *config.WebhookConfig
	Upload  *config.UploadConfig
}

// BuildPipeline wires grader, context, webhook and upload from flags. Verbose
// and dry-run details are printed to stderr.
func BuildPipeline(ctx context.Context, cfg appconfig.Config, log *zap.Logger, flags PipelineFlags, stderr io.Writer) (*Pipeline, error) {
	if err := ResolveCommonFlags(flags.Common); err != nil {
		return nil, err
	}

	g, err := grader.NewFromConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	if flags.Common.Verbose || flags.Common.DryRun {
		opts := g.Options()
		opts.Verbose = flags.Common.Verbose
		opts.DryRun = flags.Common.DryRun
		g = grader.New(opts, log)
	}

	reportCtx, err := metadata.Build(metadata.Sources{
		EnvPrefix: metadata.ContextEnv,
		File:      flags.Context.File,
		JSON:      flags.Context.JSON,
		Pairs:     flags.Context.KV,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build context: %w", err)
	}
	if flags.Common.Verbose || flags.Common.DryRun {
		PrintContextInfo(stderr, reportCtx, flags.Common.DryRun)
	}

	hook, err := SetupWebhook(flags.Webhook, log)
	if err != nil {
		return nil, err
	}

	var archiver *upload.Archiver
	if !flags.Common.DryRun {
		var conf map[string]any
		archiver, conf, err = SetupArchiver(ctx, flags.Upload, log)
		if err != nil {
			return nil, err
		}
		if archiver != nil && flags.Common.Verbose {
			PrintUploadInfo(stderr, flags.Upload.Provider, conf, flags.Upload.Compress)
		}
	}

	return &Pipeline{
		Grader:            g,
		Webhook:           hook,
		Archiver:          archiver,
		Score:             flags.Common.Score,
		Context:           reportCtx,
		HonorAutoComplete: flags.Common.HonorAutoComplete,
		DryRun:            flags.Common.DryRun,
		Log:               log,
	}, nil
}

// Process grades sub and returns its report. Delivery failures are recorded
// on the report, never returned.
func (p *Pipeline) Process(ctx context.Context, sub Submission) *output.Report {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	log = log.With(zap.String("submission_id", sub.ID))

	timeout := sub.Timeout
	if timeout <= 0 {
		timeout = p.Grader.Options().Timeout
	}

	start := time.Now()
	autoCompleted := p.HonorAutoComplete && grader.IsAutoCompleted(sub.Source)
	var v grader.Verdict
	if autoCompleted {
		log.Info("auto-completed submission, grading skipped")
		v = grader.Verdict{Passed: true, Results: []grader.CaseResult{}}
	} else {
		v = p.Grader.Grade(ctx, grader.Request{
			SubmissionID: sub.ID,
			Source:       sub.Source,
			Spec:         sub.Spec,
			Timeout:      timeout,
		})
	}

	report := output.NewReport(sub.ID, v, time.Since(start).Milliseconds())
	if autoCompleted {
		report.AutoCompleted = true
		report.Status = output.StatusAutoCompleted
	}
	report.SetTimeout(timeout.Milliseconds())
	if p.Score != nil {
		report.SetScore(*p.Score)
	}
	report.Context = p.Context

	if p.DryRun {
		return report
	}

	if p.Archiver != nil {
		data, err := json.Marshal(v)
		if err == nil {
			report.Artifacts, err = p.Archiver.Archive(ctx, sub.ID, []byte(sub.Source), data)
		}
		if err != nil {
			log.Warn("artifact upload failed", zap.Error(err))
			report.UploadError = err.Error()
		}
	}

	if p.Webhook != nil {
		if err := p.Webhook.Send(ctx, sub.ID, report.ForDelivery()); err != nil {
			log.Warn("webhook delivery failed", zap.Error(err))
			report.WebhookError = err.Error()
		} else {
			report.WebhookSent = true
		}
	}

	return report
}
