package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// identityContextKey is the context key for the authenticated identity.
const identityContextKey contextKey = "identity"

// ContextWithIdentity adds the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the authenticated identity from the
// context. Returns empty string if not authenticated.
func IdentityFromContext(ctx context.Context) string {
	identity, ok := ctx.Value(identityContextKey).(string)
	if !ok {
		return ""
	}
	return identity
}
