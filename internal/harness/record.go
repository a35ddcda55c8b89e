package harness

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidRecord marks harness output that is not one well-formed record.
var ErrInvalidRecord = errors.New("invalid harness record")

// CaseRecord is one entry of the harness "results" array.
type CaseRecord struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

// Record is the line printed by the harness. Either Msg is set (load or
// lookup failure) or Results holds one entry per case.
type Record struct {
	OK      bool
	Msg     string
	Results []CaseRecord
	// HasResults distinguishes a case run with zero cases from a failure
	// record that carries no results at all.
	HasResults bool
}

// DecodeRecord parses the harness stdout. Exactly one non-empty line holding
// a JSON object with a boolean "ok" is accepted.
func DecodeRecord(stdout []byte) (Record, error) {
	line := bytes.TrimSpace(stdout)
	if len(line) == 0 {
		return Record{}, fmt.Errorf("%w: empty output", ErrInvalidRecord)
	}
	if bytes.ContainsAny(line, "\r\n") {
		return Record{}, fmt.Errorf("%w: more than one line", ErrInvalidRecord)
	}

	var raw struct {
		OK      *bool         `json:"ok"`
		Msg     *string       `json:"msg"`
		Results *[]CaseRecord `json:"results"`
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if dec.More() {
		return Record{}, fmt.Errorf("%w: trailing data", ErrInvalidRecord)
	}
	if raw.OK == nil {
		return Record{}, fmt.Errorf("%w: missing ok", ErrInvalidRecord)
	}
	if raw.Msg == nil && raw.Results == nil {
		return Record{}, fmt.Errorf("%w: missing msg and results", ErrInvalidRecord)
	}

	rec := Record{OK: *raw.OK}
	if raw.Msg != nil {
		rec.Msg = *raw.Msg
	}
	if raw.Results != nil {
		rec.Results = *raw.Results
		rec.HasResults = true
	}
	if rec.OK && !rec.HasResults {
		return Record{}, fmt.Errorf("%w: ok record without results", ErrInvalidRecord)
	}
	return rec, nil
}
