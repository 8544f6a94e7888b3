package goPerm

import "context"

type actorIDContextKey struct{}
type requestIDContextKey struct{}

// WithActorID attaches the id of the user performing a mutation to ctx. The
// guard records it as the origin of the invalidation events it publishes, so
// multi-instance consumers can distinguish their own writes from remote ones.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDContextKey{}, actorID)
}

// WithRequestID attaches a request correlation id to ctx. It is carried on
// invalidation events for cross-service tracing only.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

func actorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	actorID, _ := ctx.Value(actorIDContextKey{}).(string)
	return actorID
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}
