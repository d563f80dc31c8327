// Package storage provides binary object storage with public URL
// issuance. Two backends exist: GridFS (default, served back by this
// application) and Cloudinary.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// Bucket names for the two image kinds.
const (
	BlogImageBucket    = "blog-images"
	CommentImageBucket = "comment-images"
)

// ObjectStore stores binary objects under bucket/path and issues
// public URLs for them. Upload never overwrites an existing path.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string) error
	PublicURL(bucket, path string) string
}

// ObjectPath builds the storage path for a user's upload:
// <userID>/<random>.<ext>. The random segment keeps concurrent uploads
// from the same user apart.
func ObjectPath(userID uuid.UUID, filename string) string {
	ext := "jpg"
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		ext = strings.ToLower(filename[i+1:])
	}
	return userID.String() + "/" + shortuuid.New() + "." + ext
}
