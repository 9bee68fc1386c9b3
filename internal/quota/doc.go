// Package quota tracks monthly character usage for content generation.
//
// The ledger converts requested durations into character costs, gates new
// generation requests against the remaining allowance, and records usage after
// successful submissions. Monthly resets are applied lazily: every read or
// write first checks whether a calendar month has elapsed since the period
// started, so no background timer is involved. Persistence goes through the
// Persister seam and failures there are logged, never surfaced from checks.
package quota
