// Package app assembles the soulcast components (state store, quota ledger,
// backend client, job tracking registry, generation orchestrator and playback
// coordinator) from a loaded configuration.
//
// The daemon and the in-process CLI commands share this wiring so the tracking
// listener, quota metrics observer and backend instrumentation are hooked up
// the same way everywhere.
package app
