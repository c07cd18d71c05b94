package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/healthcare-ab/careapi/internal/scheduling"
	"github.com/healthcare-ab/careapi/libs/auth"
	"github.com/healthcare-ab/careapi/libs/httpx"
)

type contextKey string

const claimsKey contextKey = "claims"

// RequireAuth verifies the bearer token and stores the claims in the request
// context. Requests without a valid token get a 401 and never reach the
// wrapped handler.
func RequireAuth(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			claims, err := auth.ParseAndVerifyHS256(token, secret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified claims, or nil outside RequireAuth.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func actorFromContext(ctx context.Context) (scheduling.Actor, bool) {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return scheduling.Actor{}, false
	}
	return scheduling.Actor{ID: claims.Sub, Role: claims.Role}, true
}
