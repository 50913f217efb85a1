// internal/handlers/admin.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/admin"
	"github.com/jason-s-yu/holdem/internal/auth"
)

// AdminServer exposes the admin executor over HTTP. PasswordHash is an encoded argon2id hash;
// when empty, login is disabled.
type AdminServer struct {
	Exec         *admin.Executor
	PasswordHash string
	Logger       *logrus.Logger
}

type adminLoginRequest struct {
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
}

// LoginHandler serves POST /admin/login.
func (as *AdminServer) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if as.PasswordHash == "" {
		http.Error(w, "admin login disabled", http.StatusServiceUnavailable)
		return
	}
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	ok, err := auth.VerifyPassword(req.Password, as.PasswordHash)
	if err != nil {
		as.Logger.WithError(err).Error("admin password hash is unusable")
		http.Error(w, "admin login misconfigured", http.StatusInternalServerError)
		return
	}
	if !ok {
		as.Logger.WithField("remote", r.RemoteAddr).Warn("failed admin login")
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	token, err := auth.CreateAdminJWT()
	if err != nil {
		http.Error(w, "failed to sign token", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AdminCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/admin",
		MaxAge:   int(auth.TokenTTL.Seconds()),
	})
	writeJSON(w, as.Logger, http.StatusOK, adminLoginResponse{Token: token})
}

// CommandHandler serves POST /admin/command. It must sit behind middleware.RequireAdmin.
func (as *AdminServer) CommandHandler(w http.ResponseWriter, r *http.Request) {
	var cmd admin.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid command payload", http.StatusBadRequest)
		return
	}
	res, err := as.Exec.Execute(r.Context(), cmd)
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadRequest
	}
	writeJSON(w, as.Logger, status, res)
}
