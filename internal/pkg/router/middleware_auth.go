package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/stepup/internal/pkg/session"
)

// SessionResolver resolves a bearer token to the identity that owns it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (session.Identity, error)
}

func middlewareAuthentication(resolver SessionResolver, public map[routeKey]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[routeKey{r.Method, matchedRoutePath(r)}]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			id, err := resolver.Resolve(r.Context(), token)
			if errors.Is(err, session.ErrInvalidToken) {
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to resolve session token", "error", err)
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
				return
			}

			ctx := session.SetIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
