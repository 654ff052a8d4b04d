package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockforge-backend/pkg/logger"
)

type contextKey string

const ctxActorID contextKey = "actor_id"

const actorIDHeader = "X-Actor-Id"

// ActorIDFromContext returns the actor attached to the request, or uuid.Nil.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxActorID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithActorID injects the actor identifier into the context.
func WithActorID(ctx context.Context, actorID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActorID, actorID)
}

// ActorContext reads the acting user from the X-Actor-Id header set by the
// authenticating proxy in front of this service, and attaches it to the
// request context and log fields. Requests without the header pass through
// with a nil actor; mutations record uuid.Nil as the actor in that case.
func ActorContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if raw != "" {
				if actorID, err := uuid.Parse(raw); err == nil {
					ctx = WithActorID(ctx, actorID)
					if logg != nil {
						ctx = logg.WithActorID(ctx, actorID.String())
					}
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
