package shared

import "context"

// Identity describes the authenticated user attached to a request.
type Identity struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context, nil when anonymous.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
