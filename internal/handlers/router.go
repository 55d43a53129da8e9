package handlers

import (
	"context"
	"net/http"

	"userhub/internal/handlers/middleware"
	"userhub/internal/logger"
	"userhub/internal/models"
)

type authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (models.User, error)
}

// NewRouter wires every API route. Login, register and refresh stay outside
// the auth middleware; refresh in particular may carry an expired token that
// only the token manager can judge.
func NewRouter(auth *AuthHandler, users *UserHandler, as authenticator, l logger.Logger) http.Handler {
	mux := http.NewServeMux()

	authMW := middleware.AuthMiddleware(as)
	withAuth := func(h http.HandlerFunc) http.Handler {
		return chain(h, authMW)
	}

	mux.Handle("POST /api/auth/register", http.HandlerFunc(auth.register))
	mux.Handle("POST /api/auth/login", http.HandlerFunc(auth.login))
	mux.Handle("POST /api/auth/refresh", http.HandlerFunc(auth.refresh))
	mux.Handle("GET /api/auth/profile", withAuth(auth.profile))
	mux.Handle("POST /api/auth/logout", withAuth(auth.logout))

	mux.Handle("GET /api/users", withAuth(users.list))
	mux.Handle("GET /api/users/search", withAuth(users.search))
	mux.Handle("GET /api/users/statistics", withAuth(users.statistics))
	mux.Handle("POST /api/users/change-password", withAuth(users.changePassword))
	mux.Handle("DELETE /api/users/profile/delete", withAuth(users.deleteOwnAccount))
	mux.Handle("GET /api/users/{id}", withAuth(users.show))
	mux.Handle("PUT /api/users/{id}", withAuth(users.update))
	mux.Handle("DELETE /api/users/{id}", withAuth(users.destroy))

	return chain(mux, middleware.LoggerMiddleware(l))
}

// chain wraps the handler with middlewares. First listed is the outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
