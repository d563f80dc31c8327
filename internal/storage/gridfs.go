package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"inkframe/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps objects in MongoDB GridFS, one GridFS bucket per
// logical bucket, and serves them back under <base>/media/....
type GridFSStore struct {
	db      *mongo.Database
	baseURL string
}

func NewGridFSStore(db *mongo.Database, publicBaseURL string) *GridFSStore {
	return &GridFSStore{
		db:      db,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *GridFSStore) bucket(name string) (*gridfs.Bucket, error) {
	return gridfs.NewBucket(s.db, options.GridFSBucket().SetName(name))
}

// Upload stores an object. Uploading to an occupied path is rejected
// rather than overwriting, matching the no-upsert upload contract.
func (s *GridFSStore) Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string) error {
	b, err := s.bucket(bucket)
	if err != nil {
		return fmt.Errorf("failed to open bucket %s: %v", bucket, err)
	}

	cursor, err := b.Find(bson.M{"filename": path})
	if err != nil {
		return fmt.Errorf("failed to check existing object: %v", err)
	}
	exists := cursor.Next(ctx)
	cursor.Close(ctx)
	if exists {
		return utils.NewAppError(utils.ErrDuplicate, "Object already exists: "+path, nil)
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	if _, err := b.UploadFromStream(path, r, opts); err != nil {
		return fmt.Errorf("failed to upload object: %v", err)
	}

	return nil
}

func (s *GridFSStore) PublicURL(bucket, path string) string {
	return s.baseURL + "/media/" + bucket + "/" + path
}

// Download streams an object into w and returns its content type.
// Used by the media handler that backs the public URLs.
func (s *GridFSStore) Download(ctx context.Context, bucket, path string, w io.Writer) (string, error) {
	b, err := s.bucket(bucket)
	if err != nil {
		return "", fmt.Errorf("failed to open bucket %s: %v", bucket, err)
	}

	var meta struct {
		Metadata struct {
			ContentType string `bson:"contentType"`
		} `bson:"metadata"`
	}
	err = b.GetFilesCollection().FindOne(ctx, bson.M{"filename": path}).Decode(&meta)
	if err == mongo.ErrNoDocuments {
		return "", utils.NewNotFoundError("Object")
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up object: %v", err)
	}

	if _, err := b.DownloadToStreamByName(path, w); err != nil {
		return "", fmt.Errorf("failed to download object: %v", err)
	}

	return meta.Metadata.ContentType, nil
}
