package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/forester-mcp/pkg/types"
)

func (c *cli) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Index the workspace once and print every entry",
		Long:  "Runs `forester query all` in the workspace root and prints the decoded entries in id order.",
		Args:  cobra.NoArgs,
		RunE:  c.runQuery,
	}
}

func (c *cli) runQuery(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a := newApp(c.cfg, c.logger)
	defer c.closeLogged(a)

	rs, err := a.coordinator.GetCurrent(ctx)
	if err != nil {
		return err
	}

	entries := make([]types.Entry, 0, rs.Len())
	for _, e := range rs.All() {
		entries = append(entries, e)
	}

	if c.format == formatText {
		formatEntriesText(cmd.OutOrStdout(), entries)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), "query", entries, len(entries))
}
