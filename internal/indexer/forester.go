package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dshills/forester-mcp/internal/logging"
	"github.com/dshills/forester-mcp/pkg/types"
)

// DefaultWaitDelay is how long an interrupted forester process may take to
// exit before it is killed
const DefaultWaitDelay = 2 * time.Second

// ErrCommandInProgress is returned when another forester command holds the lock
var ErrCommandInProgress = errors.New("another forester command is already running")

// Config contains configuration for the forester adapter
type Config struct {
	ForesterPath string        // Executable, looked up in PATH when not absolute
	ConfigFile   string        // forest.toml, absolute or relative to the root
	WaitDelay    time.Duration // Grace period after interrupt (default: DefaultWaitDelay)
}

// Forester runs the external forester binary
type Forester struct {
	cfg    Config
	logger *slog.Logger
	lock   CommandLock
}

// New creates a forester adapter
func New(cfg Config, logger *slog.Logger) *Forester {
	if cfg.ForesterPath == "" {
		cfg.ForesterPath = "forester"
	}
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = "forest.toml"
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = DefaultWaitDelay
	}
	return &Forester{
		cfg:    cfg,
		logger: logging.OrDiscard(logger),
	}
}

// Query runs `forester query all` in root and decodes the result set.
// Cancelling ctx interrupts the process.
func (f *Forester) Query(ctx context.Context, root string) (*types.ResultSet, error) {
	out, err := f.run(ctx, root, "query", "all", f.configPath(root))
	if err != nil {
		return nil, err
	}
	return Decode(out, root)
}

// Command runs a one-shot forester command in root and returns its stdout.
// Commands are serialized; a concurrent call fails with ErrCommandInProgress.
func (f *Forester) Command(ctx context.Context, root string, argv []string) (string, error) {
	if !f.lock.TryAcquire() {
		return "", ErrCommandInProgress
	}
	defer f.lock.Release()

	args := append(slices.Clone(argv), f.configPath(root))
	out, err := f.run(ctx, root, args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (f *Forester) configPath(root string) string {
	if filepath.IsAbs(f.cfg.ConfigFile) {
		return f.cfg.ConfigFile
	}
	return filepath.Join(root, f.cfg.ConfigFile)
}

// run executes forester with args in root
func (f *Forester) run(ctx context.Context, root string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, f.cfg.ForesterPath, args...)
	cmd.Dir = root
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = f.cfg.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		f.logger.Debug("forester interrupted", "args", args, "after", time.Since(start).Round(time.Millisecond))
		return nil, ctxErr
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("forester %s: %w", args[0], err)
		}
		return nil, fmt.Errorf("forester %s: %w: %s", args[0], err, msg)
	}

	f.logger.Debug("forester finished",
		"args", args,
		"duration", time.Since(start).Round(time.Millisecond),
		"stdout_bytes", stdout.Len())
	return stdout.Bytes(), nil
}
