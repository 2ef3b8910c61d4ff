package middleware

import (
	"context"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type handlerContextKey struct{}

// FromContext returns the session handler installed by [Sessions].
func FromContext(ctx context.Context) (*goSession.Handler, bool) {
	h, ok := ctx.Value(handlerContextKey{}).(*goSession.Handler)
	return h, ok && h != nil
}

// Sessions begins one session handler per request, exposes it through
// [FromContext] and commits the native session after next returns. Commit
// failures are logged; the response is already on its way by then.
func Sessions(m *goSession.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			h, rw := m.Begin(w, r)
			ctx := context.WithValue(r.Context(), handlerContextKey{}, h)
			next.ServeHTTP(rw, r.WithContext(ctx))

			if err := h.Commit(ctx); err != nil {
				logger := m.Logger()
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("session commit failed")
			}
		})
	}
}

// RequirePrincipal rejects requests whose session is invalid or bound to the
// anonymous principal. It must run inside [Sessions].
func RequirePrincipal() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h, ok := FromContext(r.Context())
			if !ok || !h.Valid() || h.Principal() == goSession.AnonymousPrincipal {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
