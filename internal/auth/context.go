package auth

import (
	"context"

	"github.com/dukerupert/inkwell/internal/model"
)

type contextKey struct{}

// AuthContext is the identity resolved for a request. A CompanyID of zero
// means the user belongs to no company.
type AuthContext struct {
	UserID    int64
	CompanyID int64
	Role      string
	SessionID int64
	Token     string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func CompanyID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.CompanyID
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func IsOwner(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleOwner
}

// SessionCookieName is the cookie carrying the session token for browser
// clients. API clients send the same token as a bearer token.
const SessionCookieName = "inkwell_session"
