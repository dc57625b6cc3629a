package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// emit writes payload as indented JSON when asJSON is set and otherwise
// hands stdout to text.
func emit(cmd *cobra.Command, asJSON bool, payload any, text func(io.Writer)) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	text(out)
	return nil
}
