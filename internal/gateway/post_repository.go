package gateway

import (
	"context"
	"fmt"
	"log"
	"time"

	"inkframe/internal/models"
	"inkframe/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostDocument represents post data in MongoDB
type PostDocument struct {
	ID             string    `bson:"_id"`
	Title          string    `bson:"title"`
	Content        string    `bson:"content"`
	Category       string    `bson:"category"`
	CreatedAt      time.Time `bson:"createdAt"`
	ImageURL       *string   `bson:"imageUrl,omitempty"`
	AuthorID       *string   `bson:"authorId,omitempty"`
	AuthorUsername string    `bson:"authorUsername"`
}

// InsertPost stores a new post and returns it as persisted.
func (m *MongoDB) InsertPost(ctx context.Context, post *models.Post) (*models.Post, error) {
	doc := postToDocument(post)

	if _, err := m.Posts.InsertOne(ctx, doc); err != nil {
		log.Printf("Error inserting post %s: %v", doc.ID, err)
		return nil, fmt.Errorf("failed to insert post: %v", err)
	}

	return post, nil
}

// SelectPosts returns one page of posts ordered newest-first, plus the
// exact count of all posts matching the same category filter.
func (m *MongoDB) SelectPosts(ctx context.Context, q PostQuery) (*PostPage, error) {
	filter := bson.M{}
	if len(q.Categories) > 0 {
		cats := make([]string, len(q.Categories))
		for i, c := range q.Categories {
			cats[i] = string(c)
		}
		filter["category"] = bson.M{"$in": cats}
	}

	total, err := m.Posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %v", err)
	}

	skip := int64((q.Page - 1) * q.PageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(q.PageSize))

	cursor, err := m.Posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %v", err)
	}
	defer cursor.Close(ctx)

	items, err := decodePosts(ctx, cursor)
	if err != nil {
		return nil, err
	}

	return &PostPage{Items: items, Total: total}, nil
}

// SelectPostsByAuthor returns every post by one author, newest first.
// Used by the profile view; not paginated.
func (m *MongoDB) SelectPostsByAuthor(ctx context.Context, authorID uuid.UUID) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := m.Posts.Find(ctx, bson.M{"authorId": authorID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts by author: %v", err)
	}
	defer cursor.Close(ctx)

	return decodePosts(ctx, cursor)
}

// GetPost retrieves a post by ID
func (m *MongoDB) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var doc PostDocument

	err := m.Posts.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Post")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %v", err)
	}

	return convertPostDocumentToModel(&doc)
}

// UpdatePost overwrites the full replaceable row of a post. Fields not
// present in PostRow (id, createdAt, author) are left untouched;
// everything in it, including a nil image URL, is written literally.
func (m *MongoDB) UpdatePost(ctx context.Context, id uuid.UUID, row PostRow) (*models.Post, error) {
	update := bson.M{
		"$set": bson.M{
			"title":    row.Title,
			"content":  row.Content,
			"category": string(row.Category),
			"imageUrl": row.ImageURL,
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc PostDocument
	err := m.Posts.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Post")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %v", err)
	}

	return convertPostDocumentToModel(&doc)
}

// DeletePost removes a post and all of its comments. Missing posts are
// not an error; callers treat the delete as idempotent.
func (m *MongoDB) DeletePost(ctx context.Context, id uuid.UUID) error {
	if _, err := m.Posts.DeleteOne(ctx, bson.M{"_id": id.String()}); err != nil {
		return fmt.Errorf("failed to delete post: %v", err)
	}

	result, err := m.Comments.DeleteMany(ctx, bson.M{"postId": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete post comments: %v", err)
	}

	if result.DeletedCount > 0 {
		log.Printf("Deleted %d comments cascading from post %s", result.DeletedCount, id)
	}

	return nil
}

// DeletePostsByAuthor removes every post by one author together with
// the comments on those posts. Part of profile deletion.
func (m *MongoDB) DeletePostsByAuthor(ctx context.Context, authorID uuid.UUID) error {
	cursor, err := m.Posts.Find(ctx, bson.M{"authorId": authorID.String()},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return fmt.Errorf("failed to list posts by author: %v", err)
	}

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			cursor.Close(ctx)
			return fmt.Errorf("failed to decode post id: %v", err)
		}
		ids = append(ids, doc.ID)
	}
	cursor.Close(ctx)

	if len(ids) == 0 {
		return nil
	}

	if _, err := m.Comments.DeleteMany(ctx, bson.M{"postId": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("failed to delete comments for author posts: %v", err)
	}

	if _, err := m.Posts.DeleteMany(ctx, bson.M{"authorId": authorID.String()}); err != nil {
		return fmt.Errorf("failed to delete posts by author: %v", err)
	}

	log.Printf("Deleted %d posts for author %s", len(ids), authorID)
	return nil
}

func decodePosts(ctx context.Context, cursor *mongo.Cursor) ([]*models.Post, error) {
	posts := make([]*models.Post, 0)
	for cursor.Next(ctx) {
		var doc PostDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode post: %v", err)
		}

		post, err := convertPostDocumentToModel(&doc)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func postToDocument(post *models.Post) *PostDocument {
	doc := &PostDocument{
		ID:             post.ID.String(),
		Title:          post.Title,
		Content:        post.Content,
		Category:       string(post.Category),
		CreatedAt:      post.CreatedAt,
		ImageURL:       post.ImageURL,
		AuthorUsername: post.AuthorUsername,
	}
	if post.AuthorID != nil {
		authorIDStr := post.AuthorID.String()
		doc.AuthorID = &authorIDStr
	}
	return doc
}

// Helper function to convert PostDocument to models.Post
func convertPostDocumentToModel(doc *PostDocument) (*models.Post, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID: %v", err)
	}

	category, err := models.ParseCategory(doc.Category)
	if err != nil {
		return nil, fmt.Errorf("invalid post category: %v", err)
	}

	var authorID *uuid.UUID
	if doc.AuthorID != nil {
		parsed, err := uuid.Parse(*doc.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("invalid author ID: %v", err)
		}
		authorID = &parsed
	}

	return &models.Post{
		ID:             id,
		Title:          doc.Title,
		Content:        doc.Content,
		Category:       category,
		CreatedAt:      doc.CreatedAt,
		ImageURL:       doc.ImageURL,
		AuthorID:       authorID,
		AuthorUsername: doc.AuthorUsername,
	}, nil
}
