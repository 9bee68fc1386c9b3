// Package tracking follows in-flight generation jobs until the backend reports
// a terminal status.
//
// A Registry holds the set of item IDs believed to be generating and runs at
// most one poll loop. Each poll lists backend content and resolves the tracked
// set: terminal items are removed and announced to the listener, missing items
// are dropped silently, and generating items stay. The loop stops itself once
// the set drains and restarts on the next Track call. Poll failures leave the
// set untouched; an optional capped backoff stretches the interval while the
// backend keeps failing.
package tracking
