package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/estore-auth/internal/domain"
	jwtinfra "github.com/estore-auth/internal/infrastructure/jwt"
	"github.com/estore-auth/internal/transport/http/respond"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

type contextKey string

const claimsKey contextKey = "claims"

type accessVerifier interface {
	VerifyAccess(tokenStr string) (*jwtinfra.Claims, error)
}

// AccessToken returns the access token from the access_token cookie, falling
// back to an Authorization: Bearer header. Empty when neither is present.
func AccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// Auth returns middleware that validates the access token and injects claims into context.
func Auth(tokens accessVerifier, rs *respond.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := AccessToken(r)
			if tokenStr == "" {
				rs.Error(w, r, domain.Unauthorized(respond.MsgInvalidToken))
				return
			}
			claims, err := tokens.VerifyAccess(tokenStr)
			if err != nil {
				rs.Error(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}
