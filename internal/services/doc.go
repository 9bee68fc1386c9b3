// Package services defines shared utilities consumed by the generation,
// tracking, and backend packages.
//
// Key responsibilities:
//   - Context helpers that stamp content item IDs, operation names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that let callers classify
//     failures (validation vs transient) without string matching.
//
// Use these helpers when wiring new backend calls so operational behaviour
// (error handling, observability, retries) stays uniform across components.
package services
