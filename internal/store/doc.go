// Package store persists small pieces of local client state in SQLite.
//
// The database lives at state_dir/state.db and holds a single key-value table.
// Records are JSON encoded by their owners; the quota ledger is the main
// tenant and is adapted through LedgerStore. Writes retry on SQLITE_BUSY with
// a short capped backoff so the CLI and the daemon can share one file.
package store
