package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/auth"
)

// RequireAdmin rejects requests that do not carry a valid admin token.
func RequireAdmin(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := auth.TokenFromRequest(r, auth.AdminCookie)
			if tok == "" {
				http.Error(w, "missing admin token", http.StatusUnauthorized)
				return
			}
			claims, err := auth.AuthenticateJWT(tok)
			if err != nil || !claims.Admin {
				logger.WithField("remote", r.RemoteAddr).Warn("rejected admin request")
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
