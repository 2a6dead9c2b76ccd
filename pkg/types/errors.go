package types

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// ErrNoWorkspaceRoot is returned when no workspace root is open
	ErrNoWorkspaceRoot = errors.New("no workspace root is open")
	// ErrRebuildFailed is returned when the external indexer fails
	ErrRebuildFailed = errors.New("index rebuild failed")
	// ErrConfig is returned when the workspace configuration file is missing or malformed
	ErrConfig = errors.New("invalid workspace configuration")

	// Entry validation errors
	ErrEmptyEntryID     = errors.New("entry id cannot be empty")
	ErrDuplicateEntryID = errors.New("duplicate entry id")
	ErrRelativeSource   = errors.New("entry source path must be absolute")

	// Document creation errors
	ErrInvalidPrefix   = errors.New("invalid id prefix")
	ErrUnknownTemplate = errors.New("unknown template")
)

// RebuildError wraps an indexer failure with the generation of the rebuild
// that produced it. Every caller sharing the rebuild observes the same value.
type RebuildError struct {
	Generation uint64
	Err        error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("%v (generation %d): %v", ErrRebuildFailed, e.Generation, e.Err)
}

// Unwrap allows errors.Is against both ErrRebuildFailed and the cause.
func (e *RebuildError) Unwrap() []error {
	return []error{ErrRebuildFailed, e.Err}
}

// ConfigError reports a workspace configuration file that could not be used.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrConfig, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfig, e.Err}
}
