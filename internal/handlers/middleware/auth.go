package middleware

import (
	"context"
	"net/http"

	"userhub/internal/handlers/render"
	"userhub/internal/handlers/userctx"
	"userhub/internal/models"
)

type authService interface {
	Authenticate(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware resolves the bearer token to a user and stores it in context
// Requests without a usable token are rejected with 401
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Authenticate(r.Context(), r)
			if err != nil {
				render.AuthError(w, "Unauthenticated")
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
