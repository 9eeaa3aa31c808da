package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/guandan/internal/auth"
	"github.com/jason-s-yu/guandan/internal/database"
	"github.com/jason-s-yu/guandan/internal/models"
)

const (
	maxUsernameLen = 32
	minPasswordLen = 4
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// RegisterHandler creates an account.
//
// Request payload:
//
//	{"username": "alice", "password": "secret", "nickname": "Al"}
//
// Responds 201 with the user (without its password hash), 409 when the
// username is taken.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Username) > maxUsernameLen {
		http.Error(w, "username must be 1-32 characters", http.StatusBadRequest)
		return
	}
	if len(req.Password) < minPasswordLen {
		http.Error(w, "password too short", http.StatusBadRequest)
		return
	}

	user := models.User{
		Username: req.Username,
		Nickname: strings.TrimSpace(req.Nickname),
		Password: req.Password,
	}
	if err := s.Users.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, database.ErrUsernameTaken) {
			http.Error(w, "username already exists", http.StatusConflict)
			return
		}
		s.Logger.Errorf("failed to create user %q: %v", req.Username, err)
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// LoginHandler verifies credentials and returns a session token, also set as
// the auth_token cookie.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	user, token, err := database.Authenticate(r.Context(), s.Users, req.Username, req.Password)
	if err != nil {
		s.Logger.Infof("failed to authenticate user %q: %v", req.Username, err)
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   int(s.TokenTTL.Seconds()),
	})
	user.Password = ""
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: *user})
}
