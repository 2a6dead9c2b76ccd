// Package storage keeps a SQLite journal of index rebuilds.
//
// Every settled rebuild is appended with its outcome, entry count and the
// fingerprint of the result set it produced. Comparing fingerprints tells
// whether a rebuild actually changed the corpus. The journal is only ever
// written after a rebuild has settled, so a slow disk never delays a query.
//
// # Database Schema
//
// Tables:
//   - workspaces: one row per corpus root
//   - rebuilds: outcome, entry count, fingerprint and timing of each rebuild
//   - schema_version: applied migrations, compared with semver
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage(cfg.JournalPath())
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	coord := cache.NewCoordinator(state, indexer, roots,
//	    cache.WithObserver(storage.NewJournal(db, logger)))
//
//	ws, _ := db.GetWorkspace(ctx, "/home/me/forest")
//	status, _ := db.GetStatus(ctx, ws.ID)
//
// # Build Tags
//
// The default build uses modernc.org/sqlite and needs no C compiler.
// Building with the sqlite_cgo tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
package storage
