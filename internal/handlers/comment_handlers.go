package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"inkframe/internal/actions"
	"inkframe/internal/middleware"
	"inkframe/internal/models"
	"inkframe/internal/utils"
)

// CreateCommentRequest represents the comment creation payload
type CreateCommentRequest struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"image_url"`
}

// UpdateCommentRequest is a partial patch: an absent image_url leaves
// the attached image alone, an explicit null removes it.
type UpdateCommentRequest struct {
	Content  string                `json:"content"`
	ImageURL models.OptionalString `json:"image_url"`
}

// HandleListComments returns all comments on a post, newest first.
func (s *Server) HandleListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, utils.NewValidationError("Invalid post ID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	comments, err := s.Comments.FetchComments(ctx, postID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

// HandleCreateComment adds a comment to a post on behalf of the caller.
func (s *Server) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, utils.NewValidationError("Invalid post ID"))
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, utils.NewValidationError("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	// Commenting on a missing post fails loudly instead of writing an
	// orphan.
	if _, err := s.Store.GetPost(ctx, postID); err != nil {
		writeError(w, err)
		return
	}

	profile, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	comment, err := s.Comments.CreateComment(ctx, actions.CreateCommentInput{
		PostID:         postID,
		AuthorID:       userID,
		AuthorUsername: profile.Username,
		Content:        req.Content,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// HandleUpdateComment edits a comment's content and optionally its
// image. Only the comment's author may edit.
func (s *Server) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, utils.NewValidationError("Invalid comment ID"))
		return
	}

	var req UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, utils.NewValidationError("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	current, err := s.Store.GetComment(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if current.AuthorID != userID {
		writeError(w, utils.NewForbiddenError("You do not own this comment"))
		return
	}

	comment, err := s.Comments.UpdateComment(ctx, id, req.Content, req.ImageURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comment)
}

// HandleDeleteComment removes a comment. Deleting one that is already
// gone succeeds.
func (s *Server) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, utils.NewValidationError("Invalid comment ID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	current, err := s.Store.GetComment(ctx, id)
	if utils.IsErrorCode(err, utils.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if current.AuthorID != userID {
		writeError(w, utils.NewForbiddenError("You do not own this comment"))
		return
	}

	deletedID, err := s.Comments.DeleteComment(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": deletedID.String()})
}
