package middleware

import (
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
)

// BearerPrincipal resolves the principal from a valid "Authorization: Bearer"
// principal token. Missing or invalid tokens resolve to the anonymous principal.
func BearerPrincipal(tokens *jwt.Manager) goSession.PrincipalProvider {
	return goSession.PrincipalFunc(func(r *http.Request) string {
		if tokens == nil || r == nil {
			return goSession.AnonymousPrincipal
		}
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			return goSession.AnonymousPrincipal
		}
		claims, err := tokens.ParsePrincipal(token)
		if err != nil {
			return goSession.AnonymousPrincipal
		}
		return claims.UID
	})
}

// ClientIP copies the request's remote address into the context so audit events
// carry it.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(goSession.WithClientIP(r.Context(), ip)))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
