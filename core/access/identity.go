package access

import "context"

type contextKey string

const contextKeyIdentity contextKey = "identity"

// ContextWithIdentity returns a context carrying the caller identity.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// IdentityFromContext retrieves the caller identity stored with
// ContextWithIdentity, or reports false if none was stored.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity).(Identity)
	return identity, ok
}
