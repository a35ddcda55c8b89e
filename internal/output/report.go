// Package output defines the report record printed for each graded
// submission and sent to webhooks.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/zinc-sig/pyjudge/internal/grader"
)

// Status summarizes a report for consumers that do not inspect the verdict.
type Status string

const (
	StatusPassed        Status = "passed"
	StatusFailed        Status = "failed"
	StatusTimeout       Status = "timeout"
	StatusError         Status = "error"
	StatusDryRun        Status = "dry_run"
	StatusAutoCompleted Status = "auto_completed"
)

type Report struct {
	SubmissionID  string           `json:"submission_id"`
	Status        Status           `json:"status"`
	OK            bool             `json:"ok"`
	Verdict       grader.Verdict   `json:"verdict"`
	Passed        int              `json:"passed"`
	Total         int              `json:"total"`
	ExecutionTime int64            `json:"execution_time"`
	Timeout       *int64           `json:"timeout,omitempty"` // in milliseconds
	Score         *decimal.Decimal `json:"score,omitempty"`
	Context       any              `json:"context,omitempty"`
	Artifacts     []string         `json:"artifacts,omitempty"`
	AutoCompleted bool             `json:"auto_completed,omitempty"`

	// Delivery status, only in local output.
	WebhookSent  bool   `json:"webhook_sent,omitempty"`
	WebhookError string `json:"webhook_error,omitempty"`
	UploadError  string `json:"upload_error,omitempty"`
}

// NewReport builds a report from a verdict and the wall time spent grading.
func NewReport(submissionID string, v grader.Verdict, elapsedMs int64) *Report {
	passed, total := v.Counts()
	return &Report{
		SubmissionID:  submissionID,
		Status:        StatusOf(v),
		OK:            v.Passed,
		Verdict:       v,
		Passed:        passed,
		Total:         total,
		ExecutionTime: elapsedMs,
	}
}

// StatusOf maps a verdict onto a report status.
func StatusOf(v grader.Verdict) Status {
	if v.Passed {
		return StatusPassed
	}
	switch v.Reason {
	case grader.ReasonTimeout:
		return StatusTimeout
	case grader.ReasonRuntimeError, grader.ReasonInvalidOutput:
		return StatusError
	case grader.ReasonDryRun:
		return StatusDryRun
	default:
		return StatusFailed
	}
}

// SetTimeout records the budget that applied, in milliseconds.
func (r *Report) SetTimeout(ms int64) {
	if ms > 0 {
		r.Timeout = &ms
	}
}

// SetScore awards maxScore scaled by the fraction of passed cases, rounded to two
// decimal places. A pass with no cases earns the full score.
func (r *Report) SetScore(maxScore decimal.Decimal) {
	var s decimal.Decimal
	switch {
	case r.OK:
		s = maxScore
	case r.Total == 0:
		s = decimal.Zero
	default:
		s = maxScore.Mul(decimal.NewFromInt(int64(r.Passed))).
			Div(decimal.NewFromInt(int64(r.Total))).
			Round(2)
	}
	r.Score = &s
}

// ForDelivery returns a copy without local-only delivery fields.
func (r *Report) ForDelivery() *Report {
	c := *r
	c.WebhookSent = false
	c.WebhookError = ""
	c.UploadError = ""
	return &c
}

// Write prints r as one JSON line.
func Write(w io.Writer, r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
