package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/neline/marketplace-backend/pkg/enums"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	roleKey
)

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext reports false for anonymous requests.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func WithRole(ctx context.Context, role enums.SystemRole) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

func RoleFromContext(ctx context.Context) enums.SystemRole {
	role, _ := ctx.Value(roleKey).(enums.SystemRole)
	return role
}
