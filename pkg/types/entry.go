package types

import (
	"fmt"
	"path/filepath"
)

// Entry is the metadata record of one indexed document
type Entry struct {
	// Identification
	ID string `json:"id"`

	// Display
	Title *string `json:"title"` // Nullable
	Taxon *string `json:"taxon"` // Nullable

	// Metadata
	Tags  []string          `json:"tags"`
	Route string            `json:"route"`
	Metas map[string]string `json:"metas"`

	// Location
	SourcePath string `json:"sourcePath"` // Absolute path of the defining document
}

// Validate checks if the entry is valid
func (e *Entry) Validate() error {
	if e.ID == "" {
		return ErrEmptyEntryID
	}

	if e.SourcePath != "" && !filepath.IsAbs(e.SourcePath) {
		return fmt.Errorf("%w: %s", ErrRelativeSource, e.SourcePath)
	}

	return nil
}

// HasTitle reports whether the entry carries a title
func (e *Entry) HasTitle() bool {
	return e.Title != nil
}

// TitleOr returns the title, or def when the entry has none
func (e *Entry) TitleOr(def string) string {
	if e.Title == nil {
		return def
	}
	return *e.Title
}

// TaxonOr returns the taxon, or def when the entry has none
func (e *Entry) TaxonOr(def string) string {
	if e.Taxon == nil {
		return def
	}
	return *e.Taxon
}

// StringPtr is a convenience for building entries with optional fields
func StringPtr(s string) *string {
	return &s
}
