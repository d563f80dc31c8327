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

// CommentActions orchestrates comment reads and writes against the
// gateway and keeps the comment collection slice in sync.
type CommentActions struct {
	store   gateway.RecordStore
	root    *actor.RootContext
	slice   *actor.PID
	metrics *utils.MetricsCollector
}

func NewCommentActions(store gateway.RecordStore, root *actor.RootContext, slice *actor.PID, metrics *utils.MetricsCollector) *CommentActions {
	return &CommentActions{
		store:   store,
		root:    root,
		slice:   slice,
		metrics: metrics,
	}
}

// FetchComments loads all comments on a post, newest first. The slice
// records the fetch lifecycle: loading while in flight, the gateway's
// message on failure.
func (a *CommentActions) FetchComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	startTime := time.Now()

	a.root.Send(a.slice, &state.CommentsFetchStartedMsg{PostID: postID})

	comments, err := a.store.SelectCommentsByPost(ctx, postID)
	if err != nil {
		a.metrics.IncrementErrors()
		appErr := utils.NewGatewayError(err)
		a.root.Send(a.slice, &state.CommentsFetchFailedMsg{Message: appErr.Message})
		return nil, appErr
	}

	a.root.Send(a.slice, &state.CommentsFetchedMsg{Items: comments})

	a.metrics.AddOperationLatency("fetch_comments", time.Since(startTime))
	return comments, nil
}

// CreateCommentInput carries a new comment. ImageURL, when set, must
// already point at an uploaded object.
type CreateCommentInput struct {
	PostID         uuid.UUID
	AuthorID       uuid.UUID
	AuthorUsername string
	Content        string
	ImageURL       *string
}

func (a *CommentActions) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if in.Content == "" {
		return nil, utils.NewValidationError("Content is required")
	}
	if in.AuthorUsername == "" {
		return nil, utils.NewValidationError("Author username is required")
	}

	startTime := time.Now()

	comment := &models.Comment{
		ID:             uuid.New(),
		PostID:         in.PostID,
		CreatedAt:      time.Now().UTC(),
		AuthorID:       in.AuthorID,
		AuthorUsername: in.AuthorUsername,
		Content:        in.Content,
		ImageURL:       in.ImageURL,
	}

	saved, err := a.store.InsertComment(ctx, comment)
	if err != nil {
		a.metrics.IncrementErrors()
		return nil, utils.NewGatewayError(err)
	}

	a.root.Send(a.slice, &state.CommentCreatedMsg{Comment: saved})

	a.metrics.AddOperationLatency("create_comment", time.Since(startTime))
	return saved, nil
}

// UpdateComment patches a comment. Unlike UpdatePost this is a partial
// update: content is always written, the image URL only when imageURL
// is Present (Present-and-nil clears it, absent leaves it alone). Any
// successful edit gets a fresh updated_at, image-only edits included.
func (a *CommentActions) UpdateComment(ctx context.Context, id uuid.UUID, content string, imageURL models.OptionalString) (*models.Comment, error) {
	if content == "" {
		return nil, utils.NewValidationError("Content is required")
	}

	startTime := time.Now()

	saved, err := a.store.UpdateComment(ctx, id, gateway.CommentPatch{
		Content:  content,
		ImageURL: imageURL,
	})
	if err != nil {
		a.metrics.IncrementErrors()
		return nil, utils.NewGatewayError(err)
	}

	a.root.Send(a.slice, &state.CommentUpdatedMsg{Comment: saved})

	a.metrics.AddOperationLatency("update_comment", time.Since(startTime))
	return saved, nil
}

func (a *CommentActions) DeleteComment(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	startTime := time.Now()

	if err := a.store.DeleteComment(ctx, id); err != nil {
		a.metrics.IncrementErrors()
		return uuid.Nil, utils.NewGatewayError(err)
	}

	a.root.Send(a.slice, &state.CommentDeletedMsg{CommentID: id})

	a.metrics.AddOperationLatency("delete_comment", time.Since(startTime))
	return id, nil
}

// State returns the current comment collection snapshot.
func (a *CommentActions) State() (*state.CommentListState, error) {
	future := a.root.RequestFuture(a.slice, &state.GetCommentStateMsg{}, stateRequestTimeout)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrRequestTimeout, "Comment state unavailable", err)
	}
	return result.(*state.CommentListState), nil
}
