package gateway

import (
	"context"
	"fmt"
	"time"

	"inkframe/internal/models"
	"inkframe/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentDocument represents comment data in MongoDB
type CommentDocument struct {
	ID             string     `bson:"_id"`
	PostID         string     `bson:"postId"`
	CreatedAt      time.Time  `bson:"createdAt"`
	UpdatedAt      *time.Time `bson:"updatedAt,omitempty"`
	AuthorID       string     `bson:"authorId"`
	AuthorUsername string     `bson:"authorUsername"`
	Content        string     `bson:"content"`
	ImageURL       *string    `bson:"imageUrl,omitempty"`
}

// SelectCommentsByPost returns all comments on a post, newest first.
func (m *MongoDB) SelectCommentsByPost(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := m.Comments.Find(ctx, bson.M{"postId": postID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to select comments: %v", err)
	}
	defer cursor.Close(ctx)

	comments := make([]*models.Comment, 0)
	for cursor.Next(ctx) {
		var doc CommentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode comment: %v", err)
		}

		comment, err := convertCommentDocumentToModel(&doc)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}

	return comments, nil
}

// GetComment retrieves a single comment by its ID.
func (m *MongoDB) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var doc CommentDocument

	err := m.Comments.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Comment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %v", err)
	}

	return convertCommentDocumentToModel(&doc)
}

// InsertComment stores a new comment and returns it as persisted.
func (m *MongoDB) InsertComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	doc := &CommentDocument{
		ID:             comment.ID.String(),
		PostID:         comment.PostID.String(),
		CreatedAt:      comment.CreatedAt,
		UpdatedAt:      comment.UpdatedAt,
		AuthorID:       comment.AuthorID.String(),
		AuthorUsername: comment.AuthorUsername,
		Content:        comment.Content,
		ImageURL:       comment.ImageURL,
	}

	if _, err := m.Comments.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert comment: %v", err)
	}

	return comment, nil
}

// UpdateComment applies a partial patch: content is always written, the
// image URL only when the patch carries it. Every successful patch
// stamps a fresh updatedAt, even when only the image changed.
func (m *MongoDB) UpdateComment(ctx context.Context, id uuid.UUID, patch CommentPatch) (*models.Comment, error) {
	set := bson.M{
		"content":   patch.Content,
		"updatedAt": time.Now().UTC(),
	}
	if patch.ImageURL.Present {
		set["imageUrl"] = patch.ImageURL.Value
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc CommentDocument
	err := m.Comments.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Comment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %v", err)
	}

	return convertCommentDocumentToModel(&doc)
}

// DeleteComment removes a comment. Deleting a nonexistent comment is
// indistinguishable from success.
func (m *MongoDB) DeleteComment(ctx context.Context, id uuid.UUID) error {
	if _, err := m.Comments.DeleteOne(ctx, bson.M{"_id": id.String()}); err != nil {
		return fmt.Errorf("failed to delete comment: %v", err)
	}
	return nil
}

// Helper function to convert CommentDocument to models.Comment
func convertCommentDocumentToModel(doc *CommentDocument) (*models.Comment, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid comment ID: %v", err)
	}

	postID, err := uuid.Parse(doc.PostID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID: %v", err)
	}

	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %v", err)
	}

	return &models.Comment{
		ID:             id,
		PostID:         postID,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
		AuthorID:       authorID,
		AuthorUsername: doc.AuthorUsername,
		Content:        doc.Content,
		ImageURL:       doc.ImageURL,
	}, nil
}
