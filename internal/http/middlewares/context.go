package middlewares

import "context"

type ctxKey string

const (
	ctxUserIDKey    ctxKey = "user_id"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithUserID injects the authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

// GetUserID returns the authenticated user ID, or "" when the auth
// middleware did not run.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserIDKey).(string); ok {
		return v
	}
	return ""
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID returns the request ID assigned by WithRequestID.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return v
	}
	return ""
}
