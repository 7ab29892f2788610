package storefront

import (
	"net/http"

	"github.com/bekmuradov/sofra/internal/cookie"
	"github.com/bekmuradov/sofra/internal/service"
)

// GetSessionToken retrieves the cart session token from the
// sofra_session cookie. Returns empty string if the cookie is not
// present.
func GetSessionToken(r *http.Request) string {
	return cookie.Get(r, cookie.SessionCookieName)
}

// EnsureSessionToken returns the request's session token, minting and
// setting a fresh one when the browser has none yet. Mutating cart
// routes call this so the very first "add to cart" starts a session.
func EnsureSessionToken(w http.ResponseWriter, r *http.Request, cfg *cookie.Config) (string, error) {
	if token := GetSessionToken(r); token != "" {
		return token, nil
	}

	token, err := service.GenerateSessionToken()
	if err != nil {
		return "", err
	}
	cfg.SetSession(w, cookie.SessionCookieName, token, cookie.SessionMaxAge)
	return token, nil
}
