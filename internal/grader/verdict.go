package grader

import (
	"encoding/json"
	"strings"

	"github.com/zinc-sig/pyjudge/internal/harness"
)

// FailureReason categorizes why a verdict did not pass.
type FailureReason string

const (
	ReasonNone             FailureReason = ""
	ReasonImportError      FailureReason = "import_error"
	ReasonFunctionNotFound FailureReason = "function_not_found"
	ReasonCaseFailure      FailureReason = "case_failure"
	ReasonTimeout          FailureReason = "timeout"
	ReasonRuntimeError     FailureReason = "runtime_error"
	ReasonInvalidOutput    FailureReason = "invalid_output"
	ReasonDryRun           FailureReason = "dry_run"
)

// Caller-facing messages for supervisor-level failures.
const (
	MsgTimeout       = "Timeout"
	MsgRuntimeError  = "Runtime error"
	MsgInvalidOutput = "Invalid runner output"
	MsgDryRun        = "Dry run"

	importErrorPrefix = "Import error: "
	functionPrefix    = "Function "
	notFoundSuffix    = " not found"
)

// CaseResult is the outcome of one test case, in specification order.
type CaseResult struct {
	Index   int    `json:"-"`
	Passed  bool   `json:"ok"`
	Message string `json:"msg"`
}

// Verdict is the only thing a caller of Grade ever sees.
type Verdict struct {
	Passed  bool
	Message string
	Results []CaseResult
	Reason  FailureReason
}

// Counts returns the number of passed cases and the total.
func (v Verdict) Counts() (passed, total int) {
	for _, r := range v.Results {
		if r.Passed {
			passed++
		}
	}
	return passed, len(v.Results)
}

// MarshalJSON renders the verdict payload:
//
//	{"ok": true, "results": [{"ok": true, "msg": "Passed"}]}
//	{"ok": false, "msg": "Timeout", "results": []}
//	{"ok": false, "msg": "Function add not found"}
func (v Verdict) MarshalJSON() ([]byte, error) {
	type payload struct {
		OK      bool          `json:"ok"`
		Msg     string        `json:"msg,omitempty"`
		Results *[]CaseResult `json:"results,omitempty"`
	}
	p := payload{OK: v.Passed, Msg: v.Message}
	if v.Reason != ReasonImportError && v.Reason != ReasonFunctionNotFound {
		results := v.Results
		if results == nil {
			results = []CaseResult{}
		}
		p.Results = &results
	}
	return json.Marshal(p)
}

func vacuousPass() Verdict {
	return Verdict{Passed: true, Results: []CaseResult{}}
}

func supervisorFailure(reason FailureReason, msg string) Verdict {
	return Verdict{Passed: false, Message: msg, Results: []CaseResult{}, Reason: reason}
}

func timeoutVerdict() Verdict {
	return supervisorFailure(ReasonTimeout, MsgTimeout)
}

func runtimeErrorVerdict() Verdict {
	return supervisorFailure(ReasonRuntimeError, MsgRuntimeError)
}

func invalidOutputVerdict() Verdict {
	return supervisorFailure(ReasonInvalidOutput, MsgInvalidOutput)
}

// fromRecord turns a decoded harness record into a verdict. Records that do
// not match the number of cases, or whose overall flag disagrees with the
// per-case flags, are rejected as invalid output.
func fromRecord(rec harness.Record, cases int) Verdict {
	if !rec.HasResults {
		switch {
		case rec.OK:
			return invalidOutputVerdict()
		case strings.HasPrefix(rec.Msg, importErrorPrefix):
			return Verdict{Message: rec.Msg, Reason: ReasonImportError}
		case strings.HasPrefix(rec.Msg, functionPrefix) && strings.HasSuffix(rec.Msg, notFoundSuffix):
			return Verdict{Message: rec.Msg, Reason: ReasonFunctionNotFound}
		default:
			return invalidOutputVerdict()
		}
	}

	if len(rec.Results) != cases {
		return invalidOutputVerdict()
	}

	allPassed := true
	results := make([]CaseResult, len(rec.Results))
	for i, r := range rec.Results {
		results[i] = CaseResult{Index: i, Passed: r.OK, Message: r.Msg}
		allPassed = allPassed && r.OK
	}
	if allPassed != rec.OK {
		return invalidOutputVerdict()
	}

	v := Verdict{Passed: allPassed, Results: results}
	if !allPassed {
		v.Reason = ReasonCaseFailure
	}
	return v
}
