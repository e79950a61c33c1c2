/**
 * @description
 * Authentication and authorization middleware. Session tokens are HS256 JWTs
 * issued by app.TokenIssuer; the verified principal is stored in the request
 * context.
 */
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/adarsh140528/Horizon-Bank/internal/app"
	"github.com/adarsh140528/Horizon-Bank/internal/domain"
)

type contextKey string

// PrincipalContextKey is the key used to store the caller in the request context.
const PrincipalContextKey = contextKey("principal")

// TokenParser verifies session tokens.
type TokenParser interface {
	Parse(tokenString string) (domain.Principal, error)
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, kindUnauthorized, "Authorization header required")
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenString == authHeader || tokenString == "" {
				writeError(w, http.StatusUnauthorized, kindUnauthorized, "Invalid Authorization header format")
				return
			}

			principal, err := tokens.Parse(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, kindUnauthorized, app.ErrInvalidToken.Error())
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware requires an authenticated administrator. It must run after
// AuthMiddleware.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, kindUnauthorized, "Unauthorized")
			return
		}
		if err := app.RequireAdmin(principal); err != nil {
			respondWithError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalFromContext retrieves the caller from the request context.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(PrincipalContextKey).(domain.Principal)
	return principal, ok
}
