package goSession

import (
	"net/http"
	"strings"
)

// AnonymousPrincipal is the tracking value stored for requests without an
// authenticated principal. Empty ids are normalized to it so anonymous traffic
// never looks like a principal change.
const AnonymousPrincipal = "0"

// PrincipalProvider resolves the principal id for a request.
type PrincipalProvider interface {
	Principal(r *http.Request) string
}

// PrincipalFunc adapts a plain function to [PrincipalProvider].
type PrincipalFunc func(r *http.Request) string

func (f PrincipalFunc) Principal(r *http.Request) string {
	return f(r)
}

// ContextPrincipal reads the principal attached with [WithPrincipal]. It is the
// provider used when the builder is given none.
var ContextPrincipal PrincipalProvider = PrincipalFunc(func(r *http.Request) string {
	if r == nil {
		return AnonymousPrincipal
	}
	return principalFromContext(r.Context())
})

func normalizePrincipal(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return AnonymousPrincipal
	}
	return id
}
