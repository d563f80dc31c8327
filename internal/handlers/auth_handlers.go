package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"inkframe/internal/middleware"
	"inkframe/internal/models"
	"inkframe/internal/utils"
)

// RegisterRequest represents the registration payload
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	User    *models.Identity `json:"user"`
	Profile *models.Profile  `json:"profile"`
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleRegister creates a new identity plus its public profile. The
// username is checked case-insensitively before the identity is
// created, so a taken name never leaves an orphaned identity behind.
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, utils.NewValidationError("Invalid request body"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, utils.NewValidationError("Username is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	if _, err := s.Store.GetProfileByUsernameFold(ctx, req.Username); err == nil {
		writeError(w, utils.NewAppError(utils.ErrUsernameTaken, "Username already taken", nil))
		return
	} else if !utils.IsErrorCode(err, utils.ErrNotFound) {
		writeError(w, utils.NewGatewayError(err))
		return
	}

	identity, err := s.Auth.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := s.Store.InsertProfile(ctx, &models.Profile{
		ID:        identity.ID,
		Username:  req.Username,
		CreatedAt: identity.CreatedAt,
	})
	if err != nil {
		// The username index is the last word; losing the race here
		// leaves an identity without a profile, same as the original.
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{User: identity, Profile: profile})
}

// HandleLogin verifies credentials and opens a session.
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, utils.NewValidationError("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	sess, identity, err := s.Auth.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := LoginResponse{
		Token:     sess.AccessToken,
		UserID:    identity.ID.String(),
		ExpiresAt: sess.ExpiresAt,
	}
	if profile, err := s.Store.GetProfile(ctx, identity.ID); err == nil {
		resp.Username = profile.Username
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleLogout closes the caller's session.
func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.GetTokenFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	s.Auth.SignOut(token)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// HandleSession returns the caller's session together with the
// identity and profile it belongs to.
func (s *Server) HandleSession(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.GetTokenFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	sess := s.Auth.GetSession(token)
	if sess == nil {
		writeError(w, utils.NewUnauthorizedError("Session expired"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	user, err := s.Auth.GetUser(ctx, token)
	if err != nil {
		writeError(w, err)
		return
	}

	payload := map[string]interface{}{
		"session": sess,
		"user":    user,
	}
	if profile, err := s.Store.GetProfile(ctx, user.ID); err == nil {
		payload["profile"] = profile
	}

	writeJSON(w, http.StatusOK, payload)
}
