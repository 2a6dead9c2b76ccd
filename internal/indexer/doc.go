// Package indexer runs the external forester binary that indexes a corpus.
//
// # Basic Usage
//
//	f := indexer.New(indexer.Config{
//	    ForesterPath: "forester",
//	    ConfigFile:   "forest.toml",
//	}, logger)
//
//	rs, err := f.Query(ctx, "/home/me/forest")
//
// Query runs `forester query all forest.toml` with the workspace root as
// working directory and decodes its JSON output:
//
//	{
//	  "jms-0001": {
//	    "title": "Sheaves on a site",
//	    "taxon": "Definition",
//	    "tags": ["topos"],
//	    "route": "jms-0001.xml",
//	    "metas": {"author": "jms"},
//	    "sourcePath": "/home/me/forest/trees/jms-0001.tree"
//	  }
//	}
//
// # Cancellation
//
// Query is slow on large forests. Cancelling ctx sends an interrupt to the
// process and kills it if it has not exited after Config.WaitDelay. The
// call returns ctx.Err() as soon as the process is gone.
//
// # Commands
//
// Command runs one-shot actions such as `forester new`, appending the
// configuration file to argv and returning stdout:
//
//	path, err := f.Command(ctx, root, []string{"new", "--dest", dir, "--prefix", "jms"})
//
// Commands are serialized through a CommandLock. A second command started
// while one is running fails with ErrCommandInProgress instead of queueing.
package indexer
