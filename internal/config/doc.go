// Package config loads, normalizes, and validates soulcast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SOULCAST_API_KEY. The Config type centralizes every knob the daemon and CLI
// need, so backend credentials, poll timing, and quota limits are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
