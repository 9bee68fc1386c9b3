// Package main hosts the soulcast CLI entrypoint and command graph.
//
// The Cobra-based command tree lists generated episodes, submits podcast and
// Bible-study generation requests, reports and resets the monthly character
// quota, controls playback and manages the daemon. Commands talk to a running
// daemon over its HTTP API when one answers, and otherwise assemble the
// components in-process against the same state database.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
