package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zinc-sig/pyjudge/internal/grader"
)

func cases(flags ...bool) []grader.CaseResult {
	out := make([]grader.CaseResult, len(flags))
	for i, ok := range flags {
		msg := "Passed"
		if !ok {
			msg = "Fail"
		}
		out[i] = grader.CaseResult{Index: i, Passed: ok, Message: msg}
	}
	return out
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		v    grader.Verdict
		want Status
	}{
		{"passed", grader.Verdict{Passed: true}, StatusPassed},
		{"case failure", grader.Verdict{Reason: grader.ReasonCaseFailure}, StatusFailed},
		{"import error", grader.Verdict{Reason: grader.ReasonImportError}, StatusFailed},
		{"function not found", grader.Verdict{Reason: grader.ReasonFunctionNotFound}, StatusFailed},
		{"timeout", grader.Verdict{Reason: grader.ReasonTimeout}, StatusTimeout},
		{"runtime error", grader.Verdict{Reason: grader.ReasonRuntimeError}, StatusError},
		{"invalid output", grader.Verdict{Reason: grader.ReasonInvalidOutput}, StatusError},
		{"dry run", grader.Verdict{Reason: grader.ReasonDryRun}, StatusDryRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.v))
		})
	}
}

func TestSetScore(t *testing.T) {
	tests := []struct {
		name    string
		verdict grader.Verdict
		max     string
		want    string
	}{
		{"all passed", grader.Verdict{Passed: true, Results: cases(true, true)}, "10", "10"},
		{"vacuous pass", grader.Verdict{Passed: true, Results: []grader.CaseResult{}}, "10", "10"},
		{"two of three", grader.Verdict{Reason: grader.ReasonCaseFailure, Results: cases(true, true, false)}, "10", "6.67"},
		{"one of three", grader.Verdict{Reason: grader.ReasonCaseFailure, Results: cases(true, false, false)}, "1", "0.33"},
		{"none passed", grader.Verdict{Reason: grader.ReasonCaseFailure, Results: cases(false, false)}, "5", "0"},
		{"timeout", grader.Verdict{Reason: grader.ReasonTimeout, Results: []grader.CaseResult{}}, "5", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReport("sub", tt.verdict, 12)
			r.SetScore(decimal.RequireFromString(tt.max))
			require.NotNil(t, r.Score)
			assert.True(t, r.Score.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", r.Score, tt.want)
		})
	}
}

func TestWriteReport(t *testing.T) {
	v := grader.Verdict{Reason: grader.ReasonCaseFailure, Results: cases(true, false)}
	r := NewReport("sub-1", v, 42)
	r.SetTimeout(3000)
	r.Context = map[string]any{"course": "COMP1021"}
	r.WebhookError = "boom"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r))
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "sub-1", got["submission_id"])
	assert.Equal(t, "failed", got["status"])
	assert.Equal(t, false, got["ok"])
	assert.Equal(t, float64(1), got["passed"])
	assert.Equal(t, float64(2), got["total"])
	assert.Equal(t, float64(3000), got["timeout"])
	assert.Equal(t, "boom", got["webhook_error"])
	assert.NotContains(t, got, "score")

	verdict, ok := got["verdict"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, verdict["results"], 2)
}

func TestForDelivery(t *testing.T) {
	r := NewReport("sub-1", grader.Verdict{Passed: true}, 1)
	r.WebhookSent = true
	r.WebhookError = "x"
	r.UploadError = "y"

	d := r.ForDelivery()
	assert.False(t, d.WebhookSent)
	assert.Empty(t, d.WebhookError)
	assert.Empty(t, d.UploadError)
	assert.True(t, r.WebhookSent, "original is untouched")
}
