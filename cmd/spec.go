package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zinc-sig/pyjudge/cmd/helpers"
	"github.com/zinc-sig/pyjudge/internal/spec"
)

// specReport describes how a specification will be interpreted.
type specReport struct {
	Function string            `json:"function"`
	Cases    int               `json:"cases"`
	Valid    bool              `json:"valid"`
	Error    string            `json:"error,omitempty"`
	Tests    []json.RawMessage `json:"tests"`
}

func newSpecCommand() *cobra.Command {
	var inline, file string

	cmd := &cobra.Command{
		Use:   "spec (--spec JSON | --spec-file FILE)",
		Short: "Show how a test specification is interpreted",
		Long: `Decode a test specification exactly as grading does and print the function
name, the test cases and any decode problem. A specification that cannot be
decoded grades as a vacuous pass, so check new tasks here first.`,
		Example: `  pyjudge spec --spec-file task.json
  pyjudge spec --spec '{"function": "add", "tests": [[1, 2, 3]]}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := helpers.ReadSpec(inline, file)
			if err != nil {
				return err
			}

			s, perr := spec.ParseStrict(raw)
			r := specReport{
				Function: s.Function,
				Cases:    len(s.Cases),
				Valid:    perr == nil,
				Tests:    s.Cases,
			}
			if r.Tests == nil {
				r.Tests = []json.RawMessage{}
			}
			if perr != nil {
				r.Error = perr.Error()
			}

			data, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal spec: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVar(&inline, "spec", "", "Test specification as JSON string")
	cmd.Flags().StringVar(&file, "spec-file", "", "Path to JSON test specification")
	return cmd
}
