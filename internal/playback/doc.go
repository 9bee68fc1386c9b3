// Package playback plays generated audio one item at a time.
//
// The Coordinator keeps a single playback slot: playing the current item
// again toggles pause, playing a different item stops the current one first.
// Audio URLs are normalized before use. CommandPlayer drives an external
// player process and pauses it with SIGSTOP/SIGCONT.
package playback
