package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/forester-mcp/pkg/types"
)

// Forest is the subset of forest.toml the server reads
type Forest struct {
	Forest ForestSection `toml:"forest"`
}

// ForestSection is the [forest] table
type ForestSection struct {
	Trees    []string `toml:"trees"`
	Assets   []string `toml:"assets"`
	Prefixes []string `toml:"prefixes"` // Permitted id prefixes for new documents
}

// LoadForest reads and decodes a forest.toml file
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigError{Path: path, Err: err}
	}

	var forest Forest
	if err := toml.Unmarshal(data, &forest); err != nil {
		return nil, &types.ConfigError{Path: path, Err: fmt.Errorf("malformed toml: %w", err)}
	}
	return &forest, nil
}

// Prefixes returns the permitted id prefixes, possibly none
func (f *Forest) Prefixes() []string {
	return f.Forest.Prefixes
}
