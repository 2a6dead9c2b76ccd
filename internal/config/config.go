// Package config loads the server configuration from defaults, environment
// variables and command-line flags, and reads the workspace forest.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// DefaultForesterPath is the forester executable looked up in PATH
	DefaultForesterPath = "forester"
	// DefaultConfigFile is the workspace configuration file, relative to the root
	DefaultConfigFile = "forest.toml"
	// DefaultWatchPattern selects the corpus documents whose changes invalidate the cache
	DefaultWatchPattern = "**/*.tree"
	// DefaultDBPath is the default location for the rebuild journal
	DefaultDBPath = "~/.forester-mcp"
	// JournalFile is the journal database file name inside the DB path
	JournalFile = "journal.db"
)

// Environment variables
const (
	EnvRoots        = "FORESTER_ROOTS"
	EnvForesterPath = "FORESTER_PATH"
	EnvConfigFile   = "FORESTER_CONFIG"
	EnvShowID       = "FORESTER_COMPLETION_SHOW_ID"
	EnvRandom       = "FORESTER_CREATE_RANDOM"
	EnvWatchPattern = "FORESTER_WATCH_PATTERN"
	EnvDBPath       = "FORESTER_MCP_DB_PATH"
	EnvLogLevel     = "FORESTER_MCP_LOG_LEVEL"
)

// Config contains the server configuration
type Config struct {
	Roots        []string // Open workspace roots; only the first is used
	ForesterPath string   // forester executable
	ConfigFile   string   // forest.toml, absolute or relative to the root

	ShowIDInCompletion bool // Show "[id] title" instead of "title" in completion labels
	RandomIDs          bool // Pass --random when creating documents

	Watch        bool   // Watch the corpus for changes
	WatchPattern string // doublestar pattern relative to the root

	DBPath   string // Directory of the rebuild journal; empty disables it, ":memory:" keeps it in memory
	LogLevel string
}

// Default returns the default configuration
func Default() Config {
	return Config{
		ForesterPath: DefaultForesterPath,
		ConfigFile:   DefaultConfigFile,
		Watch:        true,
		WatchPattern: DefaultWatchPattern,
		DBPath:       DefaultDBPath,
		LogLevel:     "info",
	}
}

// FromEnv returns the default configuration overridden by environment variables
func FromEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	if v := getenv(EnvRoots); v != "" {
		cfg.Roots = filepath.SplitList(v)
	}
	if v := getenv(EnvForesterPath); v != "" {
		cfg.ForesterPath = v
	}
	if v := getenv(EnvConfigFile); v != "" {
		cfg.ConfigFile = v
	}
	if v := getenv(EnvWatchPattern); v != "" {
		cfg.WatchPattern = v
	}
	switch v := getenv(EnvDBPath); v {
	case "":
	case "off":
		cfg.DBPath = ""
	default:
		cfg.DBPath = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	var err error
	if cfg.ShowIDInCompletion, err = envBool(getenv, EnvShowID, cfg.ShowIDInCompletion); err != nil {
		return cfg, err
	}
	if cfg.RandomIDs, err = envBool(getenv, EnvRandom, cfg.RandomIDs); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Normalize makes roots absolute, expands the journal path and validates patterns
func (c *Config) Normalize() error {
	roots := make([]string, 0, len(c.Roots))
	for _, root := range c.Roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
		roots = append(roots, abs)
	}
	c.Roots = roots

	if c.ForesterPath == "" {
		c.ForesterPath = DefaultForesterPath
	}
	if c.ConfigFile == "" {
		c.ConfigFile = DefaultConfigFile
	}
	if c.WatchPattern == "" {
		c.WatchPattern = DefaultWatchPattern
	}
	if !doublestar.ValidatePattern(c.WatchPattern) {
		return fmt.Errorf("invalid watch pattern %q", c.WatchPattern)
	}

	if c.DBPath != "" {
		expanded, err := expandHome(c.DBPath)
		if err != nil {
			return err
		}
		c.DBPath = expanded
	}
	return nil
}

// ConfigPath returns the forest.toml path for a workspace root
func (c *Config) ConfigPath(root string) string {
	if filepath.IsAbs(c.ConfigFile) {
		return c.ConfigFile
	}
	return filepath.Join(root, c.ConfigFile)
}

// JournalPath returns the journal database file, or "" when the journal is disabled
func (c *Config) JournalPath() string {
	if c.DBPath == "" {
		return ""
	}
	if c.DBPath == ":memory:" {
		return c.DBPath
	}
	return filepath.Join(c.DBPath, JournalFile)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func envBool(getenv func(string) string, key string, def bool) (bool, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return b, nil
}
