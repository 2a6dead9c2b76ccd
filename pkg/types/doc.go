// Package types provides shared type definitions for the forester MCP server.
//
// # Core Types
//
// Entry is the metadata record of one document in a Forester corpus, as
// reported by the external indexer:
//
//	entry := types.Entry{
//	    ID:         "jms-0001",
//	    Title:      types.StringPtr("Sheaves on a site"),
//	    Taxon:      types.StringPtr("Definition"),
//	    SourcePath: "/home/me/forest/trees/jms-0001.tree",
//	}
//
// ResultSet is the immutable id -> Entry mapping produced by exactly one
// index rebuild. It is never patched in place; a newer rebuild replaces it:
//
//	rs, err := types.NewResultSet(entries)
//	if e, ok := rs.Get("jms-0001"); ok {
//	    fmt.Println(e.TitleOr(e.ID))
//	}
//
// Iteration is always in ascending id order:
//
//	for id, e := range rs.All() {
//	    ...
//	}
//
// # Errors
//
// The error taxonomy is expressed as sentinel errors, checked with errors.Is:
//
//	ErrNoWorkspaceRoot  // no workspace root open, fatal for the request
//	ErrRebuildFailed    // external indexer failed, providers degrade to empty
//	ErrConfig           // forest.toml missing or malformed
//
// RebuildError and ConfigError carry the details and unwrap to the sentinels.
package types
