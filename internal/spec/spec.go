package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultFunction is the target function name used when a specification
// does not name one.
const DefaultFunction = "func"

// ErrEmpty is reported by ParseStrict when there is nothing to decode.
var ErrEmpty = errors.New("specification is empty")

// Specification describes which function to call and with which cases.
// Each case is kept as raw JSON; its shape is checked by the harness so a
// malformed case fails on its own instead of discarding the whole spec.
type Specification struct {
	Function string            `json:"function"`
	Cases    []json.RawMessage `json:"tests"`
}

// Empty returns the specification used for missing or malformed input.
func Empty() Specification {
	return Specification{Function: DefaultFunction, Cases: []json.RawMessage{}}
}

// IsEmpty reports whether there are no cases to run.
func (s Specification) IsEmpty() bool {
	return len(s.Cases) == 0
}

// Parse decodes a stored specification. It never fails: anything that does
// not decode yields Empty().
func Parse(raw string) Specification {
	s, err := ParseStrict(raw)
	if err != nil {
		return Empty()
	}
	return s
}

// ParseStrict decodes a specification and reports why decoding failed.
// On error the returned specification is Empty().
func ParseStrict(raw string) (Specification, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return Empty(), ErrEmpty
	}

	var doc struct {
		Function *string          `json:"function"`
		Tests    *json.RawMessage `json:"tests"`
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return Empty(), fmt.Errorf("invalid specification JSON: %w", err)
	}
	if dec.More() {
		return Empty(), fmt.Errorf("invalid specification JSON: trailing data")
	}

	s := Empty()
	if doc.Function != nil && *doc.Function != "" {
		s.Function = *doc.Function
	}
	if doc.Tests == nil || bytes.Equal(bytes.TrimSpace(*doc.Tests), []byte("null")) {
		return s, nil
	}

	var cases []json.RawMessage
	if err := json.Unmarshal(*doc.Tests, &cases); err != nil {
		return Empty(), fmt.Errorf("tests must be an array: %w", err)
	}
	s.Cases = cases
	return s, nil
}

// ParseFile reads a specification from disk. Read errors are returned;
// decode errors fall back to Empty() like Parse.
func ParseFile(path string) (Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Empty(), fmt.Errorf("failed to read specification file: %w", err)
	}
	return Parse(string(data)), nil
}

// MarshalCases renders the cases as the JSON document consumed by the harness.
func (s Specification) MarshalCases() ([]byte, error) {
	cases := s.Cases
	if cases == nil {
		cases = []json.RawMessage{}
	}
	return json.Marshal(struct {
		Function string            `json:"function"`
		Tests    []json.RawMessage `json:"tests"`
	}{Function: s.Function, Tests: cases})
}
