// Package daemon coordinates the long-running soulcast process.
//
// It wraps an assembled app.App in a single lifecycle with flock-based locking
// to prevent multiple instances. Start loads the content list once and resumes
// tracking of anything still generating, then serves the HTTP API used by the
// CLI: content listing and refresh, podcast and Bible-study generation, quota
// inspection and reset, tracking state, playback control and a Prometheus
// /metrics endpoint.
//
// Keep domain logic out of this package: validation, quota accounting and
// polling live in their own packages while the daemon focuses on startup,
// shutdown and transport.
package daemon
