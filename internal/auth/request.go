package auth

import (
	"net/http"
	"strings"
)

const (
	PlayerCookie = "auth_token"
	AdminCookie  = "admin_token"
)

// TokenFromRequest returns the bearer token, falling back to the named cookie and then to the
// "token" query parameter that browsers use for websocket upgrades.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}
