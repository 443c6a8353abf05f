package auth

import "context"

type contextKey string

const userIDContextKey contextKey = "user_id"

// DefaultOwnerID is the owner used for every request when authentication is off.
const DefaultOwnerID = "default"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok && userID != ""
}

// OwnerID returns the authenticated user, or DefaultOwnerID for anonymous requests.
func OwnerID(ctx context.Context) string {
	if userID, ok := GetUserID(ctx); ok {
		return userID
	}
	return DefaultOwnerID
}
