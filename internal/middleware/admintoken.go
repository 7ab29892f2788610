package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireAdminToken guards operator-only routes with a static bearer
// token from configuration. An empty configured token disables the
// routes entirely: they answer 404 so the surface is invisible rather
// than merely locked.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				respondNotFound(w, r)
				return
			}

			presented, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found {
				respondUnauthorized(w, r)
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				respondUnauthorized(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
