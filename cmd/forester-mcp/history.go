package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/forester-mcp/internal/storage"
)

// defaultHistoryLimit is how many rebuilds history prints by default
const defaultHistoryLimit = 20

func (c *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded rebuilds",
		Long: "Prints the rebuild journal of the workspace root, newest first. Without a root " +
			"it lists every workspace the journal knows about.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("invalid --limit %d: must not be negative", limit)
			}

			store, err := openJournal(c.cfg)
			if err != nil {
				return err
			}
			defer c.closeLogged(store)

			if len(c.cfg.Roots) == 0 {
				return c.listWorkspaces(cmd, store)
			}
			return c.listRebuilds(cmd, store, c.cfg.Roots[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "maximum number of rebuilds, 0 for all")
	return cmd
}

func (c *cli) listWorkspaces(cmd *cobra.Command, store storage.Storage) error {
	workspaces, err := store.ListWorkspaces(cmd.Context())
	if err != nil {
		return err
	}

	if c.format == formatText {
		formatWorkspacesText(cmd.OutOrStdout(), workspaces)
		return nil
	}
	results := make([]cliWorkspace, 0, len(workspaces))
	for _, ws := range workspaces {
		results = append(results, workspaceToCLI(ws))
	}
	return writeJSON(cmd.OutOrStdout(), "history", results, len(results))
}

func (c *cli) listRebuilds(cmd *cobra.Command, store storage.Storage, root string, limit int) error {
	var records []*storage.RebuildRecord

	ws, err := store.GetWorkspace(cmd.Context(), root)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	default:
		records, err = store.ListRebuilds(cmd.Context(), ws.ID, limit)
		if err != nil {
			return err
		}
	}

	if c.format == formatText {
		formatRebuildsText(cmd.OutOrStdout(), records)
		return nil
	}
	results := make([]cliRebuild, 0, len(records))
	for _, r := range records {
		results = append(results, rebuildToCLI(r))
	}
	return writeJSON(cmd.OutOrStdout(), "history", results, len(results))
}
