package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/forester-mcp/internal/cache"
	"github.com/dshills/forester-mcp/internal/config"
	"github.com/dshills/forester-mcp/internal/indexer"
	"github.com/dshills/forester-mcp/internal/provider"
	"github.com/dshills/forester-mcp/internal/storage"
	"github.com/dshills/forester-mcp/internal/workspace"
)

var errJournalDisabled = errors.New("rebuild journal is disabled")

// app wires the cache, the providers and the journal for one invocation
type app struct {
	cfg    config.Config
	logger *slog.Logger

	roots       *workspace.Roots
	forester    *indexer.Forester
	state       *cache.State
	coordinator *cache.Coordinator
	tracker     *cache.Tracker
	provider    *provider.Provider
	creator     *provider.Creator
	store       *storage.SQLiteStorage // nil when the journal is disabled or failed to open
}

func newApp(cfg config.Config, logger *slog.Logger) *app {
	a := &app{
		cfg:    cfg,
		logger: logger,
		roots:  workspace.NewRoots(cfg.Roots, logger),
		forester: indexer.New(indexer.Config{
			ForesterPath: cfg.ForesterPath,
			ConfigFile:   cfg.ConfigFile,
		}, logger),
		state: cache.NewState(),
	}

	opts := []cache.Option{cache.WithLogger(logger)}
	store, err := openJournal(cfg)
	switch {
	case errors.Is(err, errJournalDisabled):
	case err != nil:
		logger.Warn("rebuild journal unavailable", "path", cfg.JournalPath(), "error", err)
	default:
		a.store = store
		opts = append(opts, cache.WithObserver(storage.NewJournal(store, logger)))
	}

	a.coordinator = cache.NewCoordinator(a.state, a.forester, a.roots, opts...)
	a.tracker = cache.NewTracker(a.state)
	a.provider = provider.New(a.coordinator, provider.Options{
		ShowIDInCompletion: cfg.ShowIDInCompletion,
	}, logger)
	a.creator = provider.NewCreator(a.forester, a.roots, provider.CreatorConfig{
		ConfigFile: cfg.ConfigFile,
		Random:     cfg.RandomIDs,
	}, logger)
	return a
}

// journal returns the store as an interface, nil when there is none
func (a *app) journal() storage.Storage {
	if a.store == nil {
		return nil
	}
	return a.store
}

// Close stops the coordinator, letting settled rebuilds reach the journal,
// then closes the journal
func (a *app) Close() error {
	a.coordinator.Close()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// closeLogged closes a journal holder, logging a failure
func (c *cli) closeLogged(closer io.Closer) {
	if err := closer.Close(); err != nil {
		c.logger.Warn("failed to close journal", "error", err)
	}
}

func openJournal(cfg config.Config) (*storage.SQLiteStorage, error) {
	path := cfg.JournalPath()
	if path == "" {
		return nil, errJournalDisabled
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
	}
	return storage.NewSQLiteStorage(path)
}

// signalContext returns the command context cancelled on interrupt
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
