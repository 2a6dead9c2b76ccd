// Package watcher turns filesystem events under the workspace roots into
// cache invalidations.
//
// Only paths matching the configured doublestar pattern (by default
// "**/*.tree", relative to the root) count as corpus changes. Removing or
// renaming a watched directory also counts, since it may have held documents.
// Hidden directories such as .git are not watched.
//
//	w, err := watcher.New(cfg.Roots, cfg.WatchPattern, func(string) {
//	    tracker.Invalidate()
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	return w.Run(ctx)
package watcher
