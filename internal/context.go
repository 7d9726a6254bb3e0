package internal

import (
	"context"
	"time"

	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

type ctxKey string

const (
	ContextUserKey         ctxKey = "user"
	ContextRefreshTokenKey ctxKey = "refreshToken"
)

// AuthUser is the authenticated principal placed in the request context by the auth middleware.
type AuthUser struct {
	ID    int64              `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  userDatamodel.Role `json:"role"`
}

func (u *AuthUser) IsAdmin() bool {
	return u != nil && u.Role == userDatamodel.RoleAdmin
}

func UserFromContext(ctx context.Context) (*AuthUser, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(ContextUserKey).(*AuthUser)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, ContextUserKey, user)
}

func UserIDFromContext(ctx context.Context) int64 {
	if u, ok := UserFromContext(ctx); ok {
		return u.ID
	}
	return 0
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
