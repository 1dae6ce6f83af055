package auth

import "context"

type contextKey struct{}

// AuthContext identifies the authenticated caller for the duration of a
// request. It is populated by the auth middleware, never from request bodies.
type AuthContext struct {
	UserID int64
	Role   Role
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}
