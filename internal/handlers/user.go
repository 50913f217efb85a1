package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jason-s-yu/holdem/internal/auth"
)

const maxNameLength = 24

// identity is the player behind a request.
type identity struct {
	UserID uuid.UUID
	Name   string
}

// ensureGuest returns the identity in the request token, or mints a guest identity and sets its
// token cookie on w. The account itself is created by the table on first join.
func ensureGuest(w http.ResponseWriter, r *http.Request) (identity, error) {
	name := cleanName(r.URL.Query().Get("name"))
	if tok := auth.TokenFromRequest(r, auth.PlayerCookie); tok != "" {
		if claims, err := auth.AuthenticateJWT(tok); err == nil && !claims.Admin {
			if id, err := claims.UserID(); err == nil {
				if name == "" {
					name = claims.Name
				}
				return identity{UserID: id, Name: name}, nil
			}
		}
	}

	id := identity{UserID: uuid.New(), Name: name}
	token, err := auth.CreateJWT(id.UserID, id.Name)
	if err != nil {
		return identity{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.PlayerCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL.Seconds()),
	})
	return id, nil
}

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxNameLength {
		s = s[:maxNameLength]
	}
	return s
}

type guestResponse struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name,omitempty"`
	Token  string    `json:"token"`
}

// GuestHandler serves POST /user/guest?name=..., issuing a fresh guest token.
func (ts *TableServer) GuestHandler(w http.ResponseWriter, r *http.Request) {
	id := identity{UserID: uuid.New(), Name: cleanName(r.URL.Query().Get("name"))}
	token, err := auth.CreateJWT(id.UserID, id.Name)
	if err != nil {
		ts.Logger.WithError(err).Error("failed to sign guest token")
		http.Error(w, "failed to create guest", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: auth.PlayerCookie, Value: token, HttpOnly: true, Path: "/"})
	writeJSON(w, ts.Logger, http.StatusCreated, guestResponse{UserID: id.UserID, Name: id.Name, Token: token})
}
