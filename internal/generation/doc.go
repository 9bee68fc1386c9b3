// Package generation coordinates content generation requests.
//
// The Orchestrator validates a request (topic, voice count, remaining quota),
// submits it to the backend, places the returned item at the head of the
// visible list, hands generating items to the tracking registry, and records
// quota usage. It also owns the visible list itself: refreshes replace it and
// tracking updates patch items in place.
package generation
