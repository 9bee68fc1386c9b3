// Package logs reads the soulcast log file for `soulcast logs`.
//
// Last reads the final N lines with bounded memory. Follow then streams lines
// appended after a byte offset, polling until the caller's context ends. A
// truncated or rotated file restarts from the beginning.
package logs
