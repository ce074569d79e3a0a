// Package identity carries the authenticated user id through a request.
package identity

import (
	"context"
	"strings"
)

type ctxKey string

const userKey ctxKey = "clinic.user_id"

// WithUserID stores the user id in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, strings.TrimSpace(userID))
}

// UserIDFromContext extracts the user id if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(userKey)
	if val == nil {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok && userID != ""
}
