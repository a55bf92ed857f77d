package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const (
	claimsKey   contextKey = "auth_claims"
	rawTokenKey contextKey = "auth_raw_token"
)

// Blacklist reports whether a token has been revoked by logout.
type Blacklist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Middleware validates the bearer token and stores claims in the request
// context. Requests without a valid token get a 401.
func Middleware(secret []byte, blacklist Blacklist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeUnauthorized(w, "missing_token", "missing or invalid authorization header")
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := ParseToken(secret, raw)
			if err != nil {
				writeUnauthorized(w, "invalid_token", "invalid or expired token")
				return
			}

			revoked, err := blacklist.IsRevoked(r.Context(), raw)
			if err != nil {
				writeUnauthorized(w, "invalid_token", "could not validate token")
				return
			}
			if revoked {
				writeUnauthorized(w, "token_revoked", "token has been revoked")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, rawTokenKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route group to callers holding the given role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok || claims.Role != role {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "forbidden",
					"details": "insufficient role",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// RawTokenFromContext returns the bearer token as presented, for logout.
func RawTokenFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(rawTokenKey).(string)
	return raw, ok
}

func writeUnauthorized(w http.ResponseWriter, code, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"details": details,
	})
}
