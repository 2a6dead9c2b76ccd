// Command forester-mcp serves language features for a Forester corpus over
// MCP on stdio, and gives one-shot command-line access to the same index.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/forester-mcp/internal/config"
	"github.com/dshills/forester-mcp/internal/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// cli carries the flag values and the resolved configuration of one
// invocation
type cli struct {
	getenv func(string) string
	cfg    config.Config
	logger *slog.Logger
	format string

	roots        []string
	foresterPath string
	configFile   string
	dbPath       string
	logLevel     string
	watch        bool
	watchPattern string
	showID       bool
	random       bool
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	c := &cli{getenv: getenv}

	root := &cobra.Command{
		Use:   "forester-mcp",
		Short: "Language features for Forester corpora over MCP",
		Long: "forester-mcp caches the index produced by `forester query all` and answers " +
			"definition, hover, symbol and completion requests from it. Without a subcommand " +
			"it serves MCP on stdin/stdout.",
		SilenceErrors:     true,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: c.setup,
		RunE:              c.runServe,
	}

	pf := root.PersistentFlags()
	pf.StringSliceVar(&c.roots, "root", nil, "workspace root; repeat for several, only the first is used (env "+config.EnvRoots+")")
	pf.StringVar(&c.foresterPath, "forester", config.DefaultForesterPath, "forester executable (env "+config.EnvForesterPath+")")
	pf.StringVar(&c.configFile, "config", config.DefaultConfigFile, "forest.toml, absolute or relative to the root (env "+config.EnvConfigFile+")")
	pf.StringVar(&c.dbPath, "db", config.DefaultDBPath, "journal directory, \"off\" to disable (env "+config.EnvDBPath+")")
	pf.StringVar(&c.logLevel, "log-level", "info", "log level: debug|info|warn|error (env "+config.EnvLogLevel+")")
	pf.StringVar(&c.format, "format", formatJSON, "output format: json|text")
	pf.BoolVar(&c.watch, "watch", true, "invalidate the cache when corpus files change")
	pf.StringVar(&c.watchPattern, "watch-pattern", config.DefaultWatchPattern, "files whose changes invalidate the cache (env "+config.EnvWatchPattern+")")
	pf.BoolVar(&c.showID, "show-id", false, "label completions as \"[id] title\" (env "+config.EnvShowID+")")
	pf.BoolVar(&c.random, "random", false, "allocate random ids for new documents (env "+config.EnvRandom+")")

	root.AddCommand(
		c.serveCmd(),
		c.queryCmd(),
		c.symbolsCmd(),
		c.newCmd(),
		c.historyCmd(),
		c.versionCmd(),
	)
	return root
}

// setup resolves the configuration: defaults, then environment, then the
// flags given on the command line
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(c.format); err != nil {
		return err
	}

	cfg, err := config.FromEnv(c.getenv)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Roots = c.roots
	}
	if flags.Changed("forester") {
		cfg.ForesterPath = c.foresterPath
	}
	if flags.Changed("config") {
		cfg.ConfigFile = c.configFile
	}
	if flags.Changed("db") {
		cfg.DBPath = c.dbPath
		if c.dbPath == "off" {
			cfg.DBPath = ""
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("watch") {
		cfg.Watch = c.watch
	}
	if flags.Changed("watch-pattern") {
		cfg.WatchPattern = c.watchPattern
	}
	if flags.Changed("show-id") {
		cfg.ShowIDInCompletion = c.showID
	}
	if flags.Changed("random") {
		cfg.RandomIDs = c.random
	}

	if err := cfg.Normalize(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logging.New(cmd.ErrOrStderr(), level)
	return nil
}
