package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) symbolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbols [query]",
		Short: "Search entries by id, title or taxon",
		Long:  "Lists the entries whose id, title or taxon contains query, ignoring case. Without a query every entry is listed.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runSymbols,
	}
}

func (c *cli) runSymbols(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	a := newApp(c.cfg, c.logger)
	defer c.closeLogged(a)

	symbols, err := a.provider.WorkspaceSymbols(ctx, query)
	if err != nil {
		return err
	}

	if c.format == formatText {
		formatSymbolsText(cmd.OutOrStdout(), symbols)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), "symbols", symbols, len(symbols))
}
