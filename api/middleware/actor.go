package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/motorlote/motorlote-backend/pkg/logger"
)

const actorIDHeader = "X-Actor-Id"

type contextKey string

const actorIDKey contextKey = "actor_id"

// Actor resolves the X-Actor-Id header into the request context. The header
// is optional here; controllers that mutate state enforce its presence.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			actorID, err := uuid.Parse(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), actorIDKey, actorID)
			if logg != nil {
				ctx = logg.WithField(ctx, "actor_id", actorID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorIDFromContext returns the resolved actor, if the header was present
// and well formed.
func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	actorID, ok := ctx.Value(actorIDKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		return uuid.Nil, false
	}
	return actorID, true
}
