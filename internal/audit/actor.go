package audit

import (
	"context"
	"strings"
)

const (
	ActorOps    = "ops"
	ActorSystem = "system"
	ActorStripe = "stripe"
)

type actorKey struct{}

// WithActor stores who is acting for the rest of the request.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor on ctx, or ActorSystem.
func ActorFrom(ctx context.Context) string {
	if ctx == nil {
		return ActorSystem
	}
	if actor, ok := ctx.Value(actorKey{}).(string); ok && strings.TrimSpace(actor) != "" {
		return actor
	}
	return ActorSystem
}

// MemberActor names a member acting through the portal.
func MemberActor(memberID string) string {
	return "member:" + memberID
}

// CronActor names a scheduled job.
func CronActor(job string) string {
	return "cron:" + job
}
