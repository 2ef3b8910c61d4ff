// Package rate provides a Redis-backed fixed-window counter used to throttle
// operations keyed by an arbitrary subject (client IP, principal).
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Keys are prefix + ":" + subject.
package rate
