package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting the rebuild journal
type Storage interface {
	// Workspace operations
	EnsureWorkspace(ctx context.Context, rootPath string) (*Workspace, error)
	GetWorkspace(ctx context.Context, rootPath string) (*Workspace, error)
	ListWorkspaces(ctx context.Context) ([]*Workspace, error)

	// Rebuild operations
	RecordRebuild(ctx context.Context, rec *RebuildRecord) error
	ListRebuilds(ctx context.Context, workspaceID int64, limit int) ([]*RebuildRecord, error)
	LastReady(ctx context.Context, workspaceID int64) (*RebuildRecord, error)
	PruneRebuilds(ctx context.Context, workspaceID int64, keep int) (int, error)

	// Status operations
	GetStatus(ctx context.Context, workspaceID int64) (*WorkspaceStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Workspace represents a corpus root the server has rebuilt
type Workspace struct {
	ID            int64
	RootPath      string
	LastRebuildAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RebuildRecord is one settled rebuild
type RebuildRecord struct {
	ID          int64
	WorkspaceID int64
	RootPath    string // Used to resolve WorkspaceID when it is zero
	Generation  uint64
	Outcome     string // ready, failed or aborted
	EntryCount  int
	Fingerprint uint64
	Changed     bool    // Fingerprint differs from the previous ready rebuild
	Error       *string // Nullable
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration returns how long the rebuild took
func (r *RebuildRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// WorkspaceStatus summarizes the journal of one workspace
type WorkspaceStatus struct {
	Workspace   *Workspace
	Rebuilds    int
	Failures    int
	Aborted     int
	LastReady   *RebuildRecord // Nil when no rebuild has succeeded
	LastFailure *RebuildRecord // Nil when no rebuild has failed
}

// Rebuild outcomes as stored in the journal
const (
	OutcomeReady   = "ready"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)
