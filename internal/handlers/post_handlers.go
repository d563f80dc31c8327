package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"inkframe/internal/actions"
	"inkframe/internal/middleware"
	"inkframe/internal/models"
	"inkframe/internal/state"
	"inkframe/internal/utils"
)

// CreatePostRequest represents the post creation payload
type CreatePostRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category string  `json:"category"`
	ImageURL *string `json:"image_url"`
}

// UpdatePostRequest carries the full replaceable state of a post. An
// absent image_url means "keep the current image"; an explicit null
// clears it.
type UpdatePostRequest struct {
	Title    string                `json:"title"`
	Content  string                `json:"content"`
	Category string                `json:"category"`
	ImageURL models.OptionalString `json:"image_url"`
}

type postPageResponse struct {
	Items       []*models.Post `json:"items"`
	Total       int64          `json:"total"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	HasNextPage bool           `json:"has_next_page"`
}

// HandleListPosts returns one page of posts, newest first, optionally
// narrowed to a set of categories.
func (s *Server) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, utils.NewValidationError("Invalid page"))
			return
		}
		page = parsed
	}

	pageSize := state.DefaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, utils.NewValidationError("Invalid page size"))
			return
		}
		pageSize = parsed
	}

	var categories []models.Category
	if raw := r.URL.Query().Get("categories"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			category, err := models.ParseCategory(strings.TrimSpace(name))
			if err != nil {
				writeError(w, utils.NewValidationError("Unknown category: "+name))
				return
			}
			categories = append(categories, category)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	result, err := s.Posts.FetchPosts(ctx, page, pageSize, categories)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, postPageResponse{
		Items:       result.Items,
		Total:       result.Total,
		Page:        page,
		PageSize:    pageSize,
		HasNextPage: int64(page*pageSize) < result.Total,
	})
}

// HandleCreatePost publishes a new post authored by the caller.
func (s *Server) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, utils.NewValidationError("Invalid request body"))
		return
	}

	category, err := models.ParseCategory(req.Category)
	if err != nil {
		writeError(w, utils.NewValidationError("Unknown category: "+req.Category))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	// The display name comes from the caller's profile, never from the
	// request body.
	profile, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := s.Posts.CreatePost(ctx, actions.CreatePostInput{
		Title:          req.Title,
		Content:        req.Content,
		Category:       category,
		AuthorUsername: profile.Username,
		AuthorID:       userID,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleGetPost returns a single post by ID.
func (s *Server) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, utils.NewValidationError("Invalid post ID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	post, err := s.Store.GetPost(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleUpdatePost overwrites a post's title, content, category and
// image. Only the author may edit; posts without a recorded author are
// frozen for everyone.
func (s *Server) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, utils.NewValidationError("Invalid post ID"))
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, utils.NewValidationError("Invalid request body"))
		return
	}

	category, err := models.ParseCategory(req.Category)
	if err != nil {
		writeError(w, utils.NewValidationError("Unknown category: "+req.Category))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	current, err := s.Store.GetPost(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := authorizePostChange(current, userID); err != nil {
		writeError(w, err)
		return
	}

	// The gateway write is a full overwrite, so an omitted image_url is
	// resolved to the stored value here.
	imageURL := current.ImageURL
	if req.ImageURL.Present {
		imageURL = req.ImageURL.Value
	}

	post, err := s.Posts.UpdatePost(ctx, id, req.Title, req.Content, category, imageURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDeletePost removes a post and its comments. Deleting a post
// that is already gone succeeds.
func (s *Server) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, utils.NewValidationError("Invalid post ID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	current, err := s.Store.GetPost(ctx, id)
	if utils.IsErrorCode(err, utils.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if err := authorizePostChange(current, userID); err != nil {
		writeError(w, err)
		return
	}

	deletedID, err := s.Posts.DeletePost(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": deletedID.String()})
}

func authorizePostChange(post *models.Post, userID uuid.UUID) error {
	if post.AuthorID == nil || *post.AuthorID != userID {
		return utils.NewForbiddenError("You do not own this post")
	}
	return nil
}
