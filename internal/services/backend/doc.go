// Package backend is the HTTP client for the content backend.
//
// It lists stored content rows through the REST endpoint and submits podcast
// and Bible study generation requests to the edge functions. Every request
// carries the API key headers and a fresh X-Request-ID, waits on a token
// bucket limiter, and reports latency to the metrics recorder. Non-2xx
// responses become *StatusError values tagged with a services marker so
// callers can classify them with errors.Is.
//
// List decoding fails open: a malformed payload yields an empty list and a
// malformed row is skipped, both logged. Generation submissions are never
// retried since the backend has no idempotency key; list reads retry transient
// failures with capped exponential backoff.
package backend
