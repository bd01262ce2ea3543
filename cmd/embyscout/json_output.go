package main

import (
	"github.com/spf13/cobra"

	"embyscout/internal/api"
)

// writeJSON prints v as indented JSON, encoded the same way the daemon
// answers so CLI and API output can be consumed interchangeably.
func writeJSON(cmd *cobra.Command, v any) error {
	return api.Encode(cmd.OutOrStdout(), v, true)
}
