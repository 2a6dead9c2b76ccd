package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dshills/forester-mcp/internal/config"
	"github.com/dshills/forester-mcp/internal/logging"
	"github.com/dshills/forester-mcp/pkg/types"
)

// TemplatesDir holds the document templates, relative to the workspace root
const TemplatesDir = "templates"

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Commander runs one-shot forester commands
type Commander interface {
	Command(ctx context.Context, root string, argv []string) (string, error)
}

// RootResolver resolves the workspace root for a request
type RootResolver interface {
	Root() (string, error)
}

// CreatorConfig configures document creation
type CreatorConfig struct {
	ConfigFile string // forest.toml, absolute or relative to the root
	Random     bool   // Allocate random ids by default
}

// CreateRequest describes a new document
type CreateRequest struct {
	Dest     string `json:"dest"`               // Destination directory, relative to the root when not absolute
	Prefix   string `json:"prefix"`             // Id prefix, listed in forest.toml or new
	Template string `json:"template,omitempty"` // Template name without .tree; empty for none
	Random   *bool  `json:"random,omitempty"`   // Overrides CreatorConfig.Random
}

// Creator allocates new documents through forester
type Creator struct {
	cmd    Commander
	roots  RootResolver
	cfg    CreatorConfig
	logger *slog.Logger
}

// NewCreator creates a document creator
func NewCreator(cmd Commander, roots RootResolver, cfg CreatorConfig, logger *slog.Logger) *Creator {
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = config.DefaultConfigFile
	}
	return &Creator{
		cmd:    cmd,
		roots:  roots,
		cfg:    cfg,
		logger: logging.OrDiscard(logger),
	}
}

func (c *Creator) configPath(root string) string {
	if filepath.IsAbs(c.cfg.ConfigFile) {
		return c.cfg.ConfigFile
	}
	return filepath.Join(root, c.cfg.ConfigFile)
}

// Prefixes returns the id prefixes declared in forest.toml
func (c *Creator) Prefixes() ([]string, error) {
	root, err := c.roots.Root()
	if err != nil {
		return nil, err
	}
	forest, err := config.LoadForest(c.configPath(root))
	if err != nil {
		return nil, err
	}
	return slices.Clone(forest.Prefixes()), nil
}

// Templates returns the template names under templates/, without extension
func (c *Creator) Templates() ([]string, error) {
	root, err := c.roots.Root()
	if err != nil {
		return nil, err
	}
	return listTemplates(root)
}

func listTemplates(root string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(filepath.Join(root, TemplatesDir)), "*.tree",
		doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, ".tree"))
	}
	slices.Sort(names)
	return names, nil
}

// CreateDocument runs `forester new` and returns the path of the new document
func (c *Creator) CreateDocument(ctx context.Context, req CreateRequest) (string, error) {
	root, err := c.roots.Root()
	if err != nil {
		return "", err
	}

	// forest.toml must be usable before anything is allocated
	if _, err := config.LoadForest(c.configPath(root)); err != nil {
		return "", err
	}

	if !prefixPattern.MatchString(req.Prefix) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidPrefix, req.Prefix)
	}

	if req.Template != "" {
		templates, err := listTemplates(root)
		if err != nil {
			return "", err
		}
		if !slices.Contains(templates, req.Template) {
			return "", fmt.Errorf("%w: %q", types.ErrUnknownTemplate, req.Template)
		}
	}

	dest := req.Dest
	if dest == "" {
		dest = root
	} else if !filepath.IsAbs(dest) {
		dest = filepath.Join(root, dest)
	}

	random := c.cfg.Random
	if req.Random != nil {
		random = *req.Random
	}

	argv := []string{"new", "--dest", dest, "--prefix", req.Prefix}
	if req.Template != "" {
		argv = append(argv, "--template="+req.Template)
	}
	if random {
		argv = append(argv, "--random")
	}

	out, err := c.cmd.Command(ctx, root, argv)
	if err != nil {
		return "", err
	}
	path := strings.TrimSpace(out)
	if path == "" {
		return "", errors.New("forester new printed no path")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	c.logger.Info("document created", "path", path, "prefix", req.Prefix, "template", req.Template)
	return path, nil
}
