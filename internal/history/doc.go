// Package history journals control-plane activity to SQLite.
//
// Two append-only tables back the journal: packets holds every datagram
// the listener received (including malformed ones, with their parse
// error), and events holds notable control actions such as spawns,
// protocol errors, failed name lookups and run lifecycle transitions.
//
// The schema is embedded in the binary and applied by Migrate; the
// migrations package at the repository root registers the SQL files.
// The store implements the control package's Recorder, and like the
// other optional integrations it can be disabled in config, in which
// case the daemon journals nothing.
//
// # Usage
//
//	store, err := history.Open(cfg.History)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	if err := store.Migrate(ctx); err != nil {
//	    return err
//	}
package history
