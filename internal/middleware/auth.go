package middleware

import (
	"net/http"
	"strings"

	"github.com/nodeloop/kuberun/internal/checkauth"
)

// APITokenMiddleware creates middleware that validates bearer tokens against
// either a plain configured token or a stored scrypt hash. With neither
// configured every request passes; serve warns about that at startup.
func APITokenMiddleware(token, tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" && tokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"Missing Authorization header"}`))
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"Invalid Authorization header format. Use: Bearer <token>"}`))
				return
			}

			presented := strings.TrimPrefix(authHeader, "Bearer ")
			if presented == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"Empty token"}`))
				return
			}

			valid := false
			if tokenHash != "" {
				valid = checkauth.VerifyTokenHash(presented, tokenHash)
			} else {
				valid = checkauth.TokensEqual(presented, token)
			}
			if !valid {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"Invalid token"}`))
				return
			}

			ctx := checkauth.SetVerifiedContext(r.Context(), true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
