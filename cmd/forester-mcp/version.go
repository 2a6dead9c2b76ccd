package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/forester-mcp/internal/storage"
)

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version":    version,
				"build_time": buildTime,
				"build_mode": storage.BuildMode,
				"driver":     storage.DriverName,
			}
			if c.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), "version", info, 1)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "forester-mcp %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			return nil
		},
	}
}
