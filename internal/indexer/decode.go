package indexer

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dshills/forester-mcp/pkg/types"
)

// wireEntry is one value of the object printed by `forester query all`
type wireEntry struct {
	Title      *string           `json:"title"`
	Taxon      *string           `json:"taxon"`
	Tags       []string          `json:"tags"`
	Route      string            `json:"route"`
	Metas      map[string]string `json:"metas"`
	SourcePath *string           `json:"sourcePath"`
}

// Decode parses the `forester query all` output, an object keyed by id.
// Relative source paths are resolved against root.
func Decode(data []byte, root string) (*types.ResultSet, error) {
	var raw map[string]wireEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode query output: %w", err)
	}

	entries := make([]types.Entry, 0, len(raw))
	for id, w := range raw {
		entry := types.Entry{
			ID:    id,
			Title: w.Title,
			Taxon: w.Taxon,
			Tags:  w.Tags,
			Route: w.Route,
			Metas: w.Metas,
		}
		if w.SourcePath != nil && *w.SourcePath != "" {
			entry.SourcePath = *w.SourcePath
			if !filepath.IsAbs(entry.SourcePath) {
				entry.SourcePath = filepath.Join(root, entry.SourcePath)
			}
		}
		if entry.Tags == nil {
			entry.Tags = []string{}
		}
		if entry.Metas == nil {
			entry.Metas = map[string]string{}
		}
		entries = append(entries, entry)
	}

	return types.NewResultSet(entries)
}
