package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a published blog entry. AuthorID is a pointer because legacy
// posts written before accounts existed carry no author; edit and
// delete are denied to everyone for those.
type Post struct {
	ID             uuid.UUID  `json:"id" bson:"_id"`
	Title          string     `json:"title" bson:"title"`
	Content        string     `json:"content" bson:"content"`
	Category       Category   `json:"category" bson:"category"`
	CreatedAt      time.Time  `json:"created_at" bson:"createdAt"`
	ImageURL       *string    `json:"image_url,omitempty" bson:"imageUrl,omitempty"`
	AuthorID       *uuid.UUID `json:"user_id,omitempty" bson:"authorId,omitempty"`
	AuthorUsername string     `json:"username" bson:"authorUsername"`
}

// Comment belongs to exactly one post. UpdatedAt stays nil until the
// first edit; the UI shows an "edited" badge when it differs from
// CreatedAt.
type Comment struct {
	ID             uuid.UUID  `json:"id" bson:"_id"`
	PostID         uuid.UUID  `json:"blog_id" bson:"postId"`
	CreatedAt      time.Time  `json:"created_at" bson:"createdAt"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" bson:"updatedAt,omitempty"`
	AuthorID       uuid.UUID  `json:"user_id" bson:"authorId"`
	AuthorUsername string     `json:"username" bson:"authorUsername"`
	Content        string     `json:"content" bson:"content"`
	ImageURL       *string    `json:"image_url,omitempty" bson:"imageUrl,omitempty"`
}

// Profile is the public face of an account. Its ID is shared with the
// authentication identity.
type Profile struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
}

// Identity is an authentication principal (email + password hash).
// Never serialized to clients with the hash included.
type Identity struct {
	ID           uuid.UUID `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time `json:"created_at" bson:"createdAt"`
}

// Session is an authenticated login: the identity plus its bearer
// token and expiry.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      uuid.UUID `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}
