// Package goSession provides a per-request session layer over a native session
// primitive: namespaced keys, per-entry expiry with lazy reclamation and a
// session-fixation guard that regenerates the session id when the authenticated
// principal changes.
//
// A [Manager] is built once per process through [Builder.Build] and is safe for
// concurrent use. Each request obtains its own [Handler] from [Manager.Begin] (the
// Redis-backed cookie session) or [Manager.BeginNative] (any [Native]). Handlers
// hold per-request state and must not be shared across goroutines.
//
// # Handler lifecycle
//
//	no session --(native start, headers not sent)--> valid
//	valid      --(Destroy)-----------------------> invalid (terminal)
//
// While invalid every store operation returns its default and writes nothing.
// Regenerate runs at most once per handler.
//
// # What this package must NOT do
//
//   - Surface native start failures as errors; callers degrade to stateless behavior.
//   - Sweep expired entries in the background; expiry is checked on access and only
//     Get removes what it finds expired.
//   - Share handler state across requests.
package goSession
