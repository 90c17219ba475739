// Package schedule holds the daily schedule model and the pure logic around it:
// time normalization, task categorization, the text and JSON input dialects, and
// the current/next block resolution used by every surface of the daemon.
//
// Everything here is deterministic given its inputs (block ids aside) and safe to
// call from any goroutine.
package schedule
