package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/forester-mcp/internal/mcp"
	"github.com/dshills/forester-mcp/internal/storage"
	"github.com/dshills/forester-mcp/internal/watcher"
	"github.com/dshills/forester-mcp/pkg/types"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve language features over MCP on stdio",
		Long: "Serves the MCP tools on stdin/stdout. Logs go to stderr. The index is warmed " +
			"at startup and invalidated whenever a watched corpus file changes.",
		Args: cobra.NoArgs,
		RunE: c.runServe,
	}
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a := newApp(c.cfg, c.logger)
	defer c.closeLogged(a)

	c.logger.Info("forester-mcp starting",
		"version", version,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName,
		"roots", a.roots.All())

	if err := a.coordinator.Warm(); err != nil {
		if !errors.Is(err, types.ErrNoWorkspaceRoot) {
			return err
		}
		c.logger.Warn("no workspace root configured, requests will fail until one is given")
	}

	srv := mcp.NewServer(mcp.Deps{
		Coordinator: a.coordinator,
		Tracker:     a.tracker,
		Provider:    a.provider,
		Creator:     a.creator,
		Roots:       a.roots,
		Journal:     a.journal(),
		Logger:      c.logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	if c.cfg.Watch {
		if root, err := a.roots.Root(); err == nil {
			w, err := watcher.New([]string{root}, c.cfg.WatchPattern, func(path string) {
				c.logger.Debug("corpus changed", "path", path)
				a.tracker.Invalidate()
			}, c.logger)
			if err != nil {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			g.Go(func() error {
				return w.Run(gctx)
			})
		}
	}

	g.Go(func() error {
		// The client closing stdin ends the session
		defer stop()
		return srv.Serve(gctx, cmd.InOrStdin(), cmd.OutOrStdout())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	c.logger.Info("server stopped")
	return nil
}
