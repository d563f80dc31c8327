package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore uploads objects to Cloudinary. The bucket becomes a
// folder prefix on the public ID; Cloudinary itself serves the public
// URLs.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
}

func NewCloudinaryStore(cloudinaryURL string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration error: %v", err)
	}
	return &CloudinaryStore{client: cld}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string) error {
	overwrite := false
	_, err := s.client.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:  publicID(bucket, path),
		Overwrite: &overwrite,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to cloudinary: %v", err)
	}
	return nil
}

func (s *CloudinaryStore) PublicURL(bucket, path string) string {
	img, err := s.client.Image(publicID(bucket, path))
	if err != nil {
		return ""
	}
	url, err := img.String()
	if err != nil {
		return ""
	}
	return url
}

// publicID strips the extension: Cloudinary appends its own format
// suffix on delivery.
func publicID(bucket, path string) string {
	if i := strings.LastIndex(path, "."); i > 0 {
		path = path[:i]
	}
	return bucket + "/" + path
}
