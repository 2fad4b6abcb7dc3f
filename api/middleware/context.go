package middleware

import "context"

type contextKey string

const (
	ctxMemberID contextKey = "member_id"
	ctxOps      contextKey = "ops"
)

// MemberIDFromContext returns the member bound to the portal session, if any.
func MemberIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxMemberID).(string); ok {
		return v
	}
	return ""
}

// WithMemberID injects the member identifier into the context.
func WithMemberID(ctx context.Context, memberID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxMemberID, memberID)
}

func IsOps(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(ctxOps).(bool)
	return v
}

// WithOps marks the request as made from the ops dashboard.
func WithOps(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxOps, true)
}
