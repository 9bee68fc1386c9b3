// Package content defines the content item model shared by the backend client,
// the job tracking registry, and the generation orchestrator.
//
// Items arrive from the backend with loosely specified payloads: the status
// field may carry values this client does not know, timestamps come in several
// layouts, and optional fields are frequently omitted. Decoding here is lenient
// where the backend is known to drift and strict only where an item would be
// unusable (missing identifier or creation time).
package content
