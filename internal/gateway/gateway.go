package gateway

import (
	"context"

	"inkframe/internal/models"

	"github.com/google/uuid"
)

// PostQuery selects a single page of posts. Categories is empty for an
// unfiltered listing; page numbering is 1-based.
type PostQuery struct {
	Categories []models.Category
	Page       int
	PageSize   int
}

// PostPage is one page of posts plus the exact count for the same
// filter, so callers can derive pagination from Total rather than from
// the page contents.
type PostPage struct {
	Items []*models.Post
	Total int64
}

// PostRow is the complete replaceable state of a post. UpdatePost is a
// full-row overwrite: every field here is written literally, including
// a nil ImageURL, which clears the stored image.
type PostRow struct {
	Title    string
	Content  string
	Category models.Category
	ImageURL *string
}

// CommentPatch is a partial update. Content is always written;
// ImageURL is written only when Present (a Present-but-nil value
// clears the stored image). UpdatedAt is stamped on every patch.
type CommentPatch struct {
	Content  string
	ImageURL models.OptionalString
}

// RecordStore defines the record CRUD surface of the backend gateway.
// It allows swapping the MongoDB implementation for a fake in tests.
type RecordStore interface {
	// Post methods
	InsertPost(ctx context.Context, post *models.Post) (*models.Post, error)
	SelectPosts(ctx context.Context, q PostQuery) (*PostPage, error)
	SelectPostsByAuthor(ctx context.Context, authorID uuid.UUID) ([]*models.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, row PostRow) (*models.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
	DeletePostsByAuthor(ctx context.Context, authorID uuid.UUID) error

	// Comment methods
	SelectCommentsByPost(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error)
	GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	InsertComment(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	UpdateComment(ctx context.Context, id uuid.UUID, patch CommentPatch) (*models.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error

	// Profile methods
	InsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetProfileByUsernameFold(ctx context.Context, username string) (*models.Profile, error)
	DeleteProfile(ctx context.Context, id uuid.UUID) error
}
