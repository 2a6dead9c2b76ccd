package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/forester-mcp/internal/provider"
)

func (c *cli) newCmd() *cobra.Command {
	var (
		req  provider.CreateRequest
		list bool
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a document with a fresh id",
		Long: "Runs `forester new` with the given prefix and optional template, and prints the " +
			"path of the created document. --random allocates a random id. With --list, prints the known prefixes and templates instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := newApp(c.cfg, c.logger)
			defer c.closeLogged(a)

			if list {
				return c.listChoices(cmd, a)
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			path, err := a.creator.CreateDocument(ctx, req)
			if err != nil {
				return err
			}

			if c.format == formatText {
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), "new", map[string]string{"path": path}, 1)
		},
	}

	cmd.Flags().StringVar(&req.Prefix, "prefix", "", "id prefix, listed in forest.toml or new")
	cmd.Flags().StringVar(&req.Dest, "dest", "", "destination directory, relative to the root")
	cmd.Flags().StringVar(&req.Template, "template", "", "template name without .tree")
	cmd.Flags().BoolVar(&list, "list", false, "list prefixes and templates")
	return cmd
}

func (c *cli) listChoices(cmd *cobra.Command, a *app) error {
	prefixes, err := a.creator.Prefixes()
	if err != nil {
		return err
	}
	templates, err := a.creator.Templates()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.format == formatText {
		fmt.Fprintln(out, "Prefixes:")
		for _, p := range prefixes {
			fmt.Fprintf(out, "  %s\n", p)
		}
		fmt.Fprintln(out, "Templates:")
		for _, t := range templates {
			fmt.Fprintf(out, "  %s\n", t)
		}
		return nil
	}
	return writeJSON(out, "new", map[string][]string{
		"prefixes":  prefixes,
		"templates": templates,
	}, len(prefixes)+len(templates))
}
