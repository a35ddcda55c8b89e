// Package harness stages the Python test harness and the candidate code
// into a workspace and decodes the single result line the harness prints.
package harness

import (
	_ "embed"
	"fmt"

	"github.com/zinc-sig/pyjudge/internal/spec"
	"github.com/zinc-sig/pyjudge/internal/workspace"
)

// File names inside a workspace.
const (
	CodeFile    = "user_code.py"
	SpecFile    = "spec.json"
	HarnessFile = "harness.py"
)

//go:embed harness.py
var script []byte

// Script returns the harness program source.
func Script() []byte {
	out := make([]byte, len(script))
	copy(out, script)
	return out
}

// Unit is a staged execution unit: the files a child process needs.
type Unit struct {
	Workspace   *workspace.Workspace
	CodePath    string
	SpecPath    string
	HarnessPath string
}

// Args returns the interpreter arguments that run the harness against the
// staged candidate.
func (u *Unit) Args() []string {
	return []string{u.HarnessPath, u.CodePath, u.SpecPath}
}

// Stage writes the candidate source, the specification and the harness
// into ws. The function name travels as data in spec.json and is never
// spliced into program text.
func Stage(ws *workspace.Workspace, source string, s spec.Specification) (*Unit, error) {
	specDoc, err := s.MarshalCases()
	if err != nil {
		return nil, fmt.Errorf("failed to encode specification: %w", err)
	}

	codePath, err := ws.Write(CodeFile, []byte(source))
	if err != nil {
		return nil, err
	}
	specPath, err := ws.Write(SpecFile, specDoc)
	if err != nil {
		return nil, err
	}
	harnessPath, err := ws.Write(HarnessFile, script)
	if err != nil {
		return nil, err
	}

	return &Unit{
		Workspace:   ws,
		CodePath:    codePath,
		SpecPath:    specPath,
		HarnessPath: harnessPath,
	}, nil
}
