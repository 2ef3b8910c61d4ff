package goSession

import "context"

type clientIPContextKey struct{}
type principalContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It is copied into audit
// events emitted while serving the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithPrincipal attaches the authenticated principal id to ctx. [ContextPrincipal]
// reads it back; an empty id means anonymous.
func WithPrincipal(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principalID)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func principalFromContext(ctx context.Context) string {
	if ctx == nil {
		return AnonymousPrincipal
	}

	id, _ := ctx.Value(principalContextKey{}).(string)
	return normalizePrincipal(id)
}
