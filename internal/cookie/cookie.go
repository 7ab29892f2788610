// Package cookie provides session cookie helpers shared by the
// storefront handlers. All browser-facing cookies go through this
// package so the security attributes stay in one place.
package cookie

import (
	"net/http"
)

// Config holds cookie configuration.
type Config struct {
	// Secure determines whether cookies require HTTPS.
	// Should be true in production, false in development.
	Secure bool
}

// NewConfig creates a new cookie configuration.
//
// Example:
//
//	cfg := cookie.NewConfig(true)  // production
//	cfg := cookie.NewConfig(false) // development
func NewConfig(secure bool) *Config {
	return &Config{
		Secure: secure,
	}
}

// SetSession sets a session cookie.
//
// The cookie will be set with:
//   - Path: "/" (available on all paths)
//   - HttpOnly: true (not accessible via JavaScript)
//   - SameSite: Lax (sent on top-level navigations and GET from third-party)
//   - Secure: based on config
func (c *Config) SetSession(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession removes a session cookie by setting MaxAge to -1.
func (c *Config) ClearSession(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
//
// This is a convenience wrapper around r.Cookie() that handles errors.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Common cookie names used throughout the application.
// Using constants ensures consistency and makes refactoring easier.
const (
	// SessionCookieName carries the opaque cart session token.
	SessionCookieName = "sofra_session"

	// SessionMaxAge matches the sliding expiry of the server-side
	// session row.
	SessionMaxAge = 30 * 24 * 60 * 60
)
