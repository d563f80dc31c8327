// Package actions holds the action orchestrators: one asynchronous
// operation per gateway write/read, each with a single success or
// failure outcome. An orchestrator validates its input, makes exactly
// one gateway call, forwards the result to the owning state slice as a
// reducer message, and returns the outcome to the caller. No retries,
// no partial results; a failed call surfaces once, as a terminal
// *utils.AppError carrying the gateway's message.
package actions

import (
	"context"
	"time"

	"inkframe/internal/gateway"
	"inkframe/internal/models"
	"inkframe/internal/state"
	"inkframe/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

const stateRequestTimeout = 5 * time.Second

// PostActions orchestrates post reads and writes against the gateway
// and keeps the post collection slice in sync.
type PostActions struct {
	store   gateway.RecordStore
	root    *actor.RootContext
	slice   *actor.PID
	metrics *utils.MetricsCollector
}

func NewPostActions(store gateway.RecordStore, root *actor.RootContext, slice *actor.PID, metrics *utils.MetricsCollector) *PostActions {
	return &PostActions{
		store:   store,
		root:    root,
		slice:   slice,
		metrics: metrics,
	}
}

// CreatePostInput carries everything a new post needs. The image, if
// any, must already be uploaded; ImageURL is the resulting public URL.
type CreatePostInput struct {
	Title          string
	Content        string
	Category       models.Category
	AuthorUsername string
	AuthorID       uuid.UUID
	ImageURL       *string
}

// CreatePost validates and stores a new post, then prepends it to the
// local listing.
func (a *PostActions) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Title == "" {
		return nil, utils.NewValidationError("Title is required")
	}
	if in.Content == "" {
		return nil, utils.NewValidationError("Content is required")
	}
	if !in.Category.Valid() {
		return nil, utils.NewValidationError("A category is required")
	}
	if in.AuthorUsername == "" {
		return nil, utils.NewValidationError("Author username is required")
	}

	startTime := time.Now()

	authorID := in.AuthorID
	post := &models.Post{
		ID:             uuid.New(),
		Title:          in.Title,
		Content:        in.Content,
		Category:       in.Category,
		CreatedAt:      time.Now().UTC(),
		ImageURL:       in.ImageURL,
		AuthorID:       &authorID,
		AuthorUsername: in.AuthorUsername,
	}

	saved, err := a.store.InsertPost(ctx, post)
	if err != nil {
		a.metrics.IncrementErrors()
		return nil, utils.NewGatewayError(err)
	}

	a.root.Send(a.slice, &state.PostCreatedMsg{Post: saved})

	a.metrics.AddOperationLatency("create_post", time.Since(startTime))
	return saved, nil
}

// FetchPosts loads one page of posts, filtered when categories is
// non-empty, ordered newest-first, with the exact total for the same
// filter. The slice's listing is replaced wholesale.
func (a *PostActions) FetchPosts(ctx context.Context, page, pageSize int, categories []models.Category) (*gateway.PostPage, error) {
	if page < 1 {
		return nil, utils.NewValidationError("Page must be positive")
	}
	if pageSize < 1 {
		return nil, utils.NewValidationError("Page size must be positive")
	}

	startTime := time.Now()

	result, err := a.store.SelectPosts(ctx, gateway.PostQuery{
		Categories: categories,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		a.metrics.IncrementErrors()
		return nil, utils.NewGatewayError(err)
	}

	a.root.Send(a.slice, &state.PostsFetchedMsg{Items: result.Items, Total: result.Total})

	a.metrics.AddOperationLatency("fetch_posts", time.Since(startTime))
	return result, nil
}

// FetchCurrentPage fetches with the slice's own page and filter state,
// the way the listing view refreshes after a toggle or page change.
func (a *PostActions) FetchCurrentPage(ctx context.Context) (*gateway.PostPage, error) {
	st, err := a.State()
	if err != nil {
		return nil, err
	}
	return a.FetchPosts(ctx, st.Page, st.PageSize, st.SelectedCategories)
}

// UpdatePost overwrites the full replaceable state of a post. Callers
// must always pass the complete desired row: this is a full-row
// update, not a patch, and a nil imageURL clears the stored image. The
// caller resolves "no change requested" by passing the current value.
func (a *PostActions) UpdatePost(ctx context.Context, id uuid.UUID, title, content string, category models.Category, imageURL *string) (*models.Post, error) {
	if title == "" {
		return nil, utils.NewValidationError("Title is required")
	}
	if content == "" {
		return nil, utils.NewValidationError("Content is required")
	}
	if !category.Valid() {
		return nil, utils.NewValidationError("A category is required")
	}

	startTime := time.Now()

	saved, err := a.store.UpdatePost(ctx, id, gateway.PostRow{
		Title:    title,
		Content:  content,
		Category: category,
		ImageURL: imageURL,
	})
	if err != nil {
		a.metrics.IncrementErrors()
		return nil, utils.NewGatewayError(err)
	}

	a.root.Send(a.slice, &state.PostUpdatedMsg{Post: saved})

	a.metrics.AddOperationLatency("update_post", time.Since(startTime))
	return saved, nil
}

// DeletePost removes a post. Deleting an id that no longer exists is
// reported as success.
func (a *PostActions) DeletePost(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	startTime := time.Now()

	if err := a.store.DeletePost(ctx, id); err != nil {
		a.metrics.IncrementErrors()
		return uuid.Nil, utils.NewGatewayError(err)
	}

	a.root.Send(a.slice, &state.PostDeletedMsg{PostID: id})

	a.metrics.AddOperationLatency("delete_post", time.Since(startTime))
	return id, nil
}

// ToggleCategory flips a category filter and reports the resulting
// state. The caller follows up with FetchCurrentPage to refresh.
func (a *PostActions) ToggleCategory(category models.Category) (*state.PostListState, error) {
	if !category.Valid() {
		return nil, utils.NewValidationError("Unknown category")
	}
	return a.requestState(&state.ToggleCategoryMsg{Category: category})
}

func (a *PostActions) ClearCategories() (*state.PostListState, error) {
	return a.requestState(&state.ClearCategoriesMsg{})
}

func (a *PostActions) SetPage(page int) (*state.PostListState, error) {
	return a.requestState(&state.SetPageMsg{Page: page})
}

// State returns the current post collection snapshot.
func (a *PostActions) State() (*state.PostListState, error) {
	return a.requestState(&state.GetPostStateMsg{})
}

func (a *PostActions) requestState(msg interface{}) (*state.PostListState, error) {
	future := a.root.RequestFuture(a.slice, msg, stateRequestTimeout)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrRequestTimeout, "Post state unavailable", err)
	}
	return result.(*state.PostListState), nil
}
