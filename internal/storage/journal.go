package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/dshills/forester-mcp/internal/cache"
	"github.com/dshills/forester-mcp/internal/logging"
)

const (
	// DefaultJournalKeep is how many rebuilds are kept per workspace
	DefaultJournalKeep = 1000

	journalTimeout = 5 * time.Second
)

// Journal records settled rebuilds. It implements cache.Observer.
// Write failures are logged and never reach the coordinator.
type Journal struct {
	store  Storage
	logger *slog.Logger
	keep   int
}

// NewJournal creates a journal writing to store
func NewJournal(store Storage, logger *slog.Logger) *Journal {
	return &Journal{
		store:  store,
		logger: logging.OrDiscard(logger),
		keep:   DefaultJournalKeep,
	}
}

// RebuildSettled appends the settled rebuild to the journal
func (j *Journal) RebuildSettled(r *cache.Rebuild) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	rec := NewRebuildRecord(r)
	if err := j.store.RecordRebuild(ctx, rec); err != nil {
		j.logger.Warn("failed to record rebuild", "generation", r.Generation, "error", err)
		return
	}

	if n, err := j.store.PruneRebuilds(ctx, rec.WorkspaceID, j.keep); err != nil {
		j.logger.Warn("failed to prune journal", "error", err)
	} else if n > 0 {
		j.logger.Debug("pruned journal", "removed", n)
	}
}

// NewRebuildRecord converts a settled rebuild into a journal record
func NewRebuildRecord(r *cache.Rebuild) *RebuildRecord {
	rec := &RebuildRecord{
		RootPath:   r.Root,
		Generation: r.Generation,
		Outcome:    string(r.Outcome()),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt(),
	}

	rs, err := r.Result()
	switch r.Outcome() {
	case cache.OutcomeReady:
		rec.EntryCount = rs.Len()
		rec.Fingerprint = rs.Fingerprint()
	case cache.OutcomeFailed:
		msg := err.Error()
		rec.Error = &msg
	}
	return rec
}
