package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soypat/meshtopo/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func runVersion(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}
	switch format {
	case "json":
		return writeJSON(version.GetBuildInfo())
	case "text":
		fmt.Fprintf(cmd.OutOrStdout(), "meshtopo %s\n", version.GetVersion())
		return nil
	}
	return fmt.Errorf("invalid format %q: must be one of text, json", format)
}
