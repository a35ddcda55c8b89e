package helpers

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintContextInfo prints context configuration in verbose/dry-run mode
func PrintContextInfo(w io.Writer, context any, dryRun bool) {
	if context == nil {
		return
	}

	header := "Context Configuration"
	if dryRun {
		header = "Context Configuration (DRY RUN)"
	}

	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "========================================")

	data, err := json.MarshalIndent(context, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "  %v\n", context)
	} else {
		fmt.Fprintf(w, "%s\n", data)
	}

	fmt.Fprintln(w, "----------------------------------------")
}
