package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"inkframe/internal/middleware"
	"inkframe/internal/models"
	"inkframe/internal/utils"
)

type profileResponse struct {
	Profile *models.Profile `json:"profile"`
	Posts   []*models.Post  `json:"posts"`
}

// HandleGetProfile returns a public profile together with everything
// that account has published.
func (s *Server) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, utils.NewValidationError("Invalid profile ID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	profile, err := s.Store.GetProfile(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := s.Store.SelectPostsByAuthor(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Profile: profile, Posts: posts})
}

// HandleDeleteProfile tears an account down step by step: posts (and
// their comments) first, then the profile, then the session. The first
// failing step aborts and is reported as-is, so a partial teardown is
// visible rather than silently swallowed.
func (s *Server) HandleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, utils.NewValidationError("Invalid profile ID"))
		return
	}
	if id != userID {
		writeError(w, utils.NewForbiddenError("You can only delete your own account"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	if err := s.Store.DeletePostsByAuthor(ctx, id); err != nil {
		writeError(w, utils.NewGatewayError(err))
		return
	}

	if err := s.Store.DeleteProfile(ctx, id); err != nil {
		writeError(w, utils.NewGatewayError(err))
		return
	}

	// Re-read to confirm the row is actually gone before the session is
	// dropped; a lingering profile would otherwise be unreachable.
	if _, err := s.Store.GetProfile(ctx, id); err == nil {
		writeError(w, utils.NewAppError(utils.ErrGateway, "Profile still present after delete", nil))
		return
	} else if !utils.IsErrorCode(err, utils.ErrNotFound) {
		writeError(w, utils.NewGatewayError(err))
		return
	}

	if token, ok := middleware.GetTokenFromContext(r.Context()); ok {
		s.Auth.SignOut(token)
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}
