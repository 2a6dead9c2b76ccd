// Package provider answers editor queries against the current result set.
//
// Definition, Hover, WorkspaceSymbols and Complete each fetch the result set
// through a Source, normally the cache coordinator, and never trigger a
// rebuild by themselves. When the last rebuild failed they answer from the
// empty set instead of failing; a missing workspace root is still an error.
//
// Completion is offered only where an id is expected:
//
//	\transclude{   \import{   \export{   \ref{   \citek{
//	[text](        [[         \citet{...}{
//
// Creator wraps `forester new` for allocating documents with a prefix and
// an optional template from templates/*.tree.
package provider
