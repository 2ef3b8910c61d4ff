// Package internal contains helper utilities that are intentionally private to goSession,
// such as secure native session identifier generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis fixed-window counters
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
