package state

import (
	"log"

	"inkframe/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for comment list state operations
type (
	// CommentsFetchStartedMsg marks a fetch in flight for one post and
	// clears any stale error.
	CommentsFetchStartedMsg struct {
		PostID uuid.UUID
	}

	// CommentsFetchedMsg replaces the comment list wholesale. Ordering
	// (newest first) comes from the gateway query, not from here.
	CommentsFetchedMsg struct {
		Items []*models.Comment
	}

	CommentsFetchFailedMsg struct {
		Message string
	}

	CommentCreatedMsg struct {
		Comment *models.Comment
	}

	CommentUpdatedMsg struct {
		Comment *models.Comment
	}

	CommentDeletedMsg struct {
		CommentID uuid.UUID
	}

	GetCommentStateMsg struct{}
)

// CommentListState is an immutable snapshot of the comment collection
// slice for the currently viewed post.
type CommentListState struct {
	Comments []*models.Comment
	Loading  bool
	Error    string
	PostID   *uuid.UUID
}

// CommentListActor owns the comments of the single post currently in
// view.
type CommentListActor struct {
	comments []*models.Comment
	loading  bool
	err      string
	postID   *uuid.UUID
}

func NewCommentListActor() actor.Actor {
	return &CommentListActor{
		comments: make([]*models.Comment, 0),
	}
}

// Receive handles incoming messages
func (a *CommentListActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("CommentListActor started")
	case *actor.Stopping:
		log.Printf("CommentListActor stopping")
	case *actor.Stopped:
		log.Printf("CommentListActor stopped")

	case *CommentsFetchStartedMsg:
		a.loading = true
		a.err = ""
		postID := msg.PostID
		a.postID = &postID
		a.respondSnapshot(context)
	case *CommentsFetchedMsg:
		a.loading = false
		a.comments = append(a.comments[:0], msg.Items...)
		a.respondSnapshot(context)
	case *CommentsFetchFailedMsg:
		a.loading = false
		a.err = msg.Message
		a.respondSnapshot(context)
	case *CommentCreatedMsg:
		a.comments = append([]*models.Comment{msg.Comment}, a.comments...)
		a.respondSnapshot(context)
	case *CommentUpdatedMsg:
		for i, c := range a.comments {
			if c.ID == msg.Comment.ID {
				a.comments[i] = msg.Comment
				break
			}
		}
		a.respondSnapshot(context)
	case *CommentDeletedMsg:
		kept := a.comments[:0]
		for _, c := range a.comments {
			if c.ID != msg.CommentID {
				kept = append(kept, c)
			}
		}
		a.comments = kept
		a.respondSnapshot(context)
	case *GetCommentStateMsg:
		context.Respond(a.snapshot())
	default:
		log.Printf("CommentListActor: Unknown message type: %T", msg)
	}
}

func (a *CommentListActor) respondSnapshot(context actor.Context) {
	if context.Sender() != nil {
		context.Respond(a.snapshot())
	}
}

func (a *CommentListActor) snapshot() *CommentListState {
	comments := make([]*models.Comment, len(a.comments))
	copy(comments, a.comments)

	var postID *uuid.UUID
	if a.postID != nil {
		id := *a.postID
		postID = &id
	}

	return &CommentListState{
		Comments: comments,
		Loading:  a.loading,
		Error:    a.err,
		PostID:   postID,
	}
}
