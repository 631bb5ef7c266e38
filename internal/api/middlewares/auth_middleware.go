package middlewares

import (
	"context"
	"net/http"
	"strings"

	"siteboard/internal/model/auth_model"
	"siteboard/internal/services/auth_services"
)

type contextKey string

const actorKey contextKey = "actor"

func GetActorFromContext(ctx context.Context) (auth_model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(auth_model.Actor)
	return actor, ok
}

// WithActor returns a context carrying the authenticated actor.
func WithActor(ctx context.Context, actor auth_model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func AuthMiddleware(auth *auth_services.AuthService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		actor, err := auth.ParseAccessToken(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}
