// Package api defines the wire-format types, converters and client for the
// daemon HTTP API.
//
// # Key Types
//
// ContentItem: transport representation of a generated episode.
//
// QuotaStatus, TrackingStatus, PlaybackStatus: snapshots of the quota ledger,
// job tracking registry and playback slot.
//
// DaemonStatus: aggregated runtime information.
//
// ErrorResponse: body of every failed request. Kind carries the orchestrator
// failure name (empty_topic, insufficient_voices, exceeds_character_limit,
// server_error) so clients can rebuild the typed error.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Content statuses are exposed as the collapsed generating/ready/failed values.
package api
