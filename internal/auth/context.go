package auth

import (
	"context"

	"qcm-service/internal/domain"
)

// ActorFromContext returns the actor stored by Middleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(domain.Actor)
	return actor, ok
}

// WithActor stores actor in ctx the way Middleware does.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}
