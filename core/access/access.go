/*Package access provides the bearer-token authentication gate.

AutoTrack authenticates every API request with a Firebase ID token. The
verified user id is stored in the request context and can be retrieved
with IdentityFromContext.
*/
package access

import (
	"context"
)

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

const (
	contextKeyIdentity contextKey = "_identity_"
)

// ContextWithIdentity returns a new context with the verified identity added to it
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// IdentityFromContext retrieves the verified identity from the context,
// or the empty string if the request was not authenticated.
func IdentityFromContext(ctx context.Context) string {
	identity, ok := ctx.Value(contextKeyIdentity).(string)
	if ok {
		return identity
	}
	return ""
}
