// Package middleware adapts a goSession.Manager to net/http.
//
// [Sessions] begins one handler per request and commits it afterwards;
// downstream handlers fetch it with [FromContext]. [BearerPrincipal] resolves
// the session principal from a principal token and [RequirePrincipal] rejects
// anonymous sessions.
//
// # What this package must NOT do
//
//   - Read or write session values itself (handlers do, through FromContext).
//   - Share a session handler between requests.
package middleware
