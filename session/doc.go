// Package session provides Redis-backed persistence for native session records and the
// compact binary encodings used for records and namespaced entries.
//
// # Binary encoding
//
// A [Record] is stored under prefix:id as a single versioned blob holding every raw
// value of the session. Values written through the handler are themselves [Entry]
// blobs (value plus optional absolute expiry). Both encoders are append-only: new
// versions add fields but never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Record]/[Entry] models. It
// does NOT know about cookies, principals, key namespacing or fixation checks; those
// belong to the goSession handler.
//
// # What this package must NOT do
//
//   - Import goSession, jwt, or middleware (no upward imports).
//   - Interpret entry values beyond their expiry.
package session
