package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection keeps :memory: databases shared across calls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens the journal at dbPath and applies pending migrations
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Workspace operations

const workspaceColumns = `id, root_path, last_rebuild_at, created_at, updated_at`

func scanWorkspace(row interface{ Scan(...any) error }) (*Workspace, error) {
	var ws Workspace
	var lastRebuildAt sql.NullTime
	err := row.Scan(&ws.ID, &ws.RootPath, &lastRebuildAt, &ws.CreatedAt, &ws.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastRebuildAt.Valid {
		ws.LastRebuildAt = lastRebuildAt.Time
	}
	return &ws, nil
}

func (s *SQLiteStorage) ensureWorkspaceWithQuerier(ctx context.Context, q querier, rootPath string) (*Workspace, error) {
	now := time.Now()
	_, err := q.ExecContext(ctx, `
		INSERT INTO workspaces (root_path, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(root_path) DO NOTHING
	`, rootPath, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return s.getWorkspaceWithQuerier(ctx, q, rootPath)
}

// EnsureWorkspace returns the workspace for rootPath, creating it if needed
func (s *SQLiteStorage) EnsureWorkspace(ctx context.Context, rootPath string) (*Workspace, error) {
	return s.ensureWorkspaceWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) getWorkspaceWithQuerier(ctx context.Context, q querier, rootPath string) (*Workspace, error) {
	row := q.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE root_path = ?`, rootPath)
	return scanWorkspace(row)
}

func (s *SQLiteStorage) GetWorkspace(ctx context.Context, rootPath string) (*Workspace, error) {
	return s.getWorkspaceWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) getWorkspaceByID(ctx context.Context, q querier, id int64) (*Workspace, error) {
	row := q.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id)
	return scanWorkspace(row)
}

func (s *SQLiteStorage) listWorkspacesWithQuerier(ctx context.Context, q querier) ([]*Workspace, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces ORDER BY root_path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var workspaces []*Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, rows.Err()
}

func (s *SQLiteStorage) ListWorkspaces(ctx context.Context) ([]*Workspace, error) {
	return s.listWorkspacesWithQuerier(ctx, s.querier())
}

// Rebuild operations

const rebuildColumns = `r.id, r.workspace_id, w.root_path, r.generation, r.outcome, r.entry_count,
	r.fingerprint, r.changed, r.error, r.started_at, r.finished_at`

func scanRebuild(row interface{ Scan(...any) error }) (*RebuildRecord, error) {
	var rec RebuildRecord
	var generation int64
	var fingerprint, errText sql.NullString
	err := row.Scan(&rec.ID, &rec.WorkspaceID, &rec.RootPath, &generation, &rec.Outcome,
		&rec.EntryCount, &fingerprint, &rec.Changed, &errText, &rec.StartedAt, &rec.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Generation = uint64(generation)
	if fingerprint.Valid {
		rec.Fingerprint, err = strconv.ParseUint(fingerprint.String, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fingerprint %q: %w", fingerprint.String, err)
		}
	}
	if errText.Valid {
		rec.Error = &errText.String
	}
	return &rec, nil
}

// recordRebuildWithQuerier inserts rec and derives Changed from the previous
// ready rebuild of the same workspace
func (s *SQLiteStorage) recordRebuildWithQuerier(ctx context.Context, q querier, rec *RebuildRecord) error {
	if rec.WorkspaceID == 0 {
		ws, err := s.ensureWorkspaceWithQuerier(ctx, q, rec.RootPath)
		if err != nil {
			return err
		}
		rec.WorkspaceID = ws.ID
	}

	var fingerprint sql.NullString
	rec.Changed = false
	if rec.Outcome == OutcomeReady {
		fingerprint = sql.NullString{String: fmt.Sprintf("%016x", rec.Fingerprint), Valid: true}
		prev, err := s.lastReadyWithQuerier(ctx, q, rec.WorkspaceID)
		switch {
		case errors.Is(err, ErrNotFound):
			rec.Changed = true
		case err != nil:
			return err
		default:
			rec.Changed = prev.Fingerprint != rec.Fingerprint
		}
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO rebuilds (workspace_id, generation, outcome, entry_count, fingerprint,
		                      changed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, rec.WorkspaceID, int64(rec.Generation), rec.Outcome, rec.EntryCount, fingerprint,
		rec.Changed, rec.Error, rec.StartedAt, rec.FinishedAt).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to record rebuild: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE workspaces SET last_rebuild_at = ?, updated_at = ? WHERE id = ?
	`, rec.FinishedAt, time.Now(), rec.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	return nil
}

// RecordRebuild appends rec to the journal in its own transaction
func (s *SQLiteStorage) RecordRebuild(ctx context.Context, rec *RebuildRecord) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.RecordRebuild(ctx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) listRebuildsWithQuerier(ctx context.Context, q querier, workspaceID int64, limit int) ([]*RebuildRecord, error) {
	if limit <= 0 {
		limit = -1 // No limit
	}
	rows, err := q.QueryContext(ctx, `
		SELECT `+rebuildColumns+`
		FROM rebuilds r JOIN workspaces w ON r.workspace_id = w.id
		WHERE r.workspace_id = ?
		ORDER BY r.id DESC
		LIMIT ?
	`, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []*RebuildRecord
	for rows.Next() {
		rec, err := scanRebuild(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListRebuilds returns the most recent rebuilds first
func (s *SQLiteStorage) ListRebuilds(ctx context.Context, workspaceID int64, limit int) ([]*RebuildRecord, error) {
	return s.listRebuildsWithQuerier(ctx, s.querier(), workspaceID, limit)
}

func (s *SQLiteStorage) lastWithOutcome(ctx context.Context, q querier, workspaceID int64, outcome string) (*RebuildRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+rebuildColumns+`
		FROM rebuilds r JOIN workspaces w ON r.workspace_id = w.id
		WHERE r.workspace_id = ? AND r.outcome = ?
		ORDER BY r.id DESC
		LIMIT 1
	`, workspaceID, outcome)
	return scanRebuild(row)
}

func (s *SQLiteStorage) lastReadyWithQuerier(ctx context.Context, q querier, workspaceID int64) (*RebuildRecord, error) {
	return s.lastWithOutcome(ctx, q, workspaceID, OutcomeReady)
}

// LastReady returns the most recent successful rebuild
func (s *SQLiteStorage) LastReady(ctx context.Context, workspaceID int64) (*RebuildRecord, error) {
	return s.lastReadyWithQuerier(ctx, s.querier(), workspaceID)
}

func (s *SQLiteStorage) pruneRebuildsWithQuerier(ctx context.Context, q querier, workspaceID int64, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := q.ExecContext(ctx, `
		DELETE FROM rebuilds
		WHERE workspace_id = ? AND id NOT IN (
			SELECT id FROM rebuilds WHERE workspace_id = ? ORDER BY id DESC LIMIT ?
		)
	`, workspaceID, workspaceID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune rebuilds: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// PruneRebuilds deletes all but the keep most recent rebuilds of a workspace
func (s *SQLiteStorage) PruneRebuilds(ctx context.Context, workspaceID int64, keep int) (int, error) {
	return s.pruneRebuildsWithQuerier(ctx, s.querier(), workspaceID, keep)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, workspaceID int64) (*WorkspaceStatus, error) {
	ws, err := s.getWorkspaceByID(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}

	status := &WorkspaceStatus{Workspace: ws}
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = 'aborted' THEN 1 ELSE 0 END), 0)
		FROM rebuilds
		WHERE workspace_id = ?
	`, workspaceID).Scan(&status.Rebuilds, &status.Failures, &status.Aborted)
	if err != nil {
		return nil, err
	}

	status.LastReady, err = s.lastWithOutcome(ctx, q, workspaceID, OutcomeReady)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	status.LastFailure, err = s.lastWithOutcome(ctx, q, workspaceID, OutcomeFailed)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return status, nil
}

// GetStatus summarizes the journal of one workspace
func (s *SQLiteStorage) GetStatus(ctx context.Context, workspaceID int64) (*WorkspaceStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), workspaceID)
}

// Transaction implementations delegate to the querier of the transaction

func (t *sqliteTx) EnsureWorkspace(ctx context.Context, rootPath string) (*Workspace, error) {
	return t.storage.ensureWorkspaceWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) GetWorkspace(ctx context.Context, rootPath string) (*Workspace, error) {
	return t.storage.getWorkspaceWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) ListWorkspaces(ctx context.Context) ([]*Workspace, error) {
	return t.storage.listWorkspacesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) RecordRebuild(ctx context.Context, rec *RebuildRecord) error {
	return t.storage.recordRebuildWithQuerier(ctx, t.querier(), rec)
}

func (t *sqliteTx) ListRebuilds(ctx context.Context, workspaceID int64, limit int) ([]*RebuildRecord, error) {
	return t.storage.listRebuildsWithQuerier(ctx, t.querier(), workspaceID, limit)
}

func (t *sqliteTx) LastReady(ctx context.Context, workspaceID int64) (*RebuildRecord, error) {
	return t.storage.lastReadyWithQuerier(ctx, t.querier(), workspaceID)
}

func (t *sqliteTx) PruneRebuilds(ctx context.Context, workspaceID int64, keep int) (int, error) {
	return t.storage.pruneRebuildsWithQuerier(ctx, t.querier(), workspaceID, keep)
}

func (t *sqliteTx) GetStatus(ctx context.Context, workspaceID int64) (*WorkspaceStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), workspaceID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
